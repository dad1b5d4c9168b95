// Package matcher decides whether a newly captured descriptor belongs to
// a previously enrolled identity or represents a new enrollment, and
// persists new enrollments best-effort.
package matcher

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/visage-id/visage/internal/audit"
	"github.com/visage-id/visage/internal/domain"
)

// Scope selects which enrollment set a match runs against.
type Scope string

const (
	// ScopePerUser restricts matching to the owner's own records. This
	// is the default: lookups stay bounded and one user's biometric data
	// never matches inside another user's container.
	ScopePerUser Scope = "per-user"
	// ScopeGlobal matches across every stored record. Legacy path kept
	// for migration of pre-scoping data; prefer ScopePerUser.
	ScopeGlobal Scope = "global"
)

// Thresholds tune the match decision.
type Thresholds struct {
	// Match: best similarity above this means the same person returned.
	Match float64
	// NearMatch: the floor of the gray zone. Similarities in
	// (NearMatch, Match] are treated as no-match but flagged distinctly,
	// as slack for the detector's run-to-run variance.
	NearMatch float64
}

// DefaultThresholds returns the stock decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Match: 0.90, NearMatch: 0.75}
}

// RecordStore is the persistence boundary the matcher talks to. The
// implementation (Postgres, memory, a document database) is an external
// collaborator.
type RecordStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.EnrollmentRecord, error)
	ListAll(ctx context.Context) ([]domain.EnrollmentRecord, error)
	Append(ctx context.Context, record *domain.EnrollmentRecord) error
}

// Outcome is the result of one match-and-enroll step.
type Outcome struct {
	Match domain.MatchResult
	// Enrolled is the record created on a no-match outcome, nil when an
	// existing identity matched.
	Enrolled *domain.EnrollmentRecord
	// Persisted is false when the append failed. The enrollment is
	// still reported to the caller; persistence is best effort.
	Persisted bool
}

type Matcher struct {
	store      RecordStore
	thresholds Thresholds
	scope      Scope
	logger     *slog.Logger
	audit      audit.Logger
	now        func() time.Time
}

func New(store RecordStore, logger *slog.Logger) *Matcher {
	return &Matcher{
		store:      store,
		thresholds: DefaultThresholds(),
		scope:      ScopePerUser,
		logger:     logger,
		audit:      audit.NoOpLogger{},
		now:        time.Now,
	}
}

// WithThresholds overrides the decision thresholds.
func (m *Matcher) WithThresholds(t Thresholds) *Matcher {
	m.thresholds = t
	return m
}

// WithScope selects the matching scope.
func (m *Matcher) WithScope(scope Scope) *Matcher {
	m.scope = scope
	return m
}

// WithAudit attaches an audit logger.
func (m *Matcher) WithAudit(a audit.Logger) *Matcher {
	m.audit = a
	return m
}

// WithClock overrides the timestamp source. Tests only.
func (m *Matcher) WithClock(now func() time.Time) *Matcher {
	m.now = now
	return m
}

// Match computes the best similarity of the new descriptor against the
// scoped record set. A read failure fails open: the set is treated as
// empty and logged, never surfaced as a fatal error. Records that
// cannot be compared (shape mismatch) are skipped, not fatal.
func (m *Matcher) Match(ctx context.Context, ownerID string, vector domain.FaceDescriptor) (*domain.MatchResult, error) {
	if err := vector.Validate(); err != nil {
		return nil, err
	}

	records, err := m.list(ctx, ownerID)
	if err != nil {
		m.logger.Warn("enrollment read failed, treating as empty set",
			slog.String("owner_id", ownerID),
			slog.Any("error", err),
		)
		records = nil
	}

	var best float64
	var bestRecord *domain.EnrollmentRecord
	for i := range records {
		sim, err := CosineSimilarity(vector, records[i].Vector)
		if err != nil {
			m.logger.Warn("skipping non-comparable enrollment record",
				slog.String("record_id", records[i].ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		if sim > best {
			best = sim
			bestRecord = &records[i]
		}
	}

	result := &domain.MatchResult{
		BestSimilarity: best,
		Decision:       m.decide(best),
	}
	result.Matched = result.Decision == domain.DecisionMatch
	if result.Matched {
		result.Record = bestRecord
	}
	return result, nil
}

// MatchAndEnroll is the single atomic logical step of a capture session:
// match the descriptor and, when no identity matched, persist a new
// enrollment. Concurrent sessions for one owner can double-enroll; that
// is an accepted, documented risk rather than something this component
// prevents with locking.
func (m *Matcher) MatchAndEnroll(ctx context.Context, ownerID string, vector domain.FaceDescriptor, walletAddress string) (*Outcome, error) {
	result, err := m.Match(ctx, ownerID, vector)
	if err != nil {
		return nil, err
	}

	switch result.Decision {
	case domain.DecisionMatch:
		// The existing identity already has its canonical descriptor;
		// nothing is written.
		m.auditEvent(ctx, audit.EventMatchFound, ownerID, true, nil, map[string]string{
			"similarity": formatSim(result.BestSimilarity),
			"record_id":  result.Record.ID.String(),
		})
		return &Outcome{Match: *result, Persisted: true}, nil

	case domain.DecisionNearMatch:
		m.logger.Warn("similarity in the near-match gray zone, enrolling as new",
			slog.String("owner_id", ownerID),
			slog.Float64("similarity", result.BestSimilarity),
		)
		m.auditEvent(ctx, audit.EventNearMatch, ownerID, true, nil, map[string]string{
			"similarity": formatSim(result.BestSimilarity),
		})
	}

	record := &domain.EnrollmentRecord{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Vector:        vector.Clone(),
		WalletAddress: walletAddress,
		CapturedAt:    m.now().UTC(),
	}

	persisted := true
	if err := m.store.Append(ctx, record); err != nil {
		// Best-effort persistence: the liveness outcome must not depend
		// on storage succeeding.
		persisted = false
		m.logger.Error("enrollment persistence failed",
			slog.String("owner_id", ownerID),
			slog.Any("error", domain.ErrPersistence.WithError(err)),
		)
	}
	m.auditEvent(ctx, audit.EventEnrollmentCreated, ownerID, persisted, nil, map[string]string{
		"record_id":  record.ID.String(),
		"similarity": formatSim(result.BestSimilarity),
	})

	return &Outcome{Match: *result, Enrolled: record, Persisted: persisted}, nil
}

func (m *Matcher) list(ctx context.Context, ownerID string) ([]domain.EnrollmentRecord, error) {
	if m.scope == ScopeGlobal {
		return m.store.ListAll(ctx)
	}
	return m.store.ListByOwner(ctx, ownerID)
}

func (m *Matcher) decide(similarity float64) domain.Decision {
	switch {
	case similarity > m.thresholds.Match:
		return domain.DecisionMatch
	case similarity > m.thresholds.NearMatch:
		return domain.DecisionNearMatch
	default:
		return domain.DecisionNoMatch
	}
}

func (m *Matcher) auditEvent(ctx context.Context, eventType audit.EventType, ownerID string, success bool, err error, metadata map[string]string) {
	event := audit.Event{
		EventType: eventType,
		OwnerID:   ownerID,
		Scope:     string(m.scope),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = m.audit.Log(ctx, event)
}

func formatSim(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

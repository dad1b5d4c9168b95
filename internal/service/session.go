// Package service orchestrates a capture session: liveness gating over a
// frame feed, a single descriptor extraction, then match-and-enroll.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visage-id/visage/internal/audit"
	"github.com/visage-id/visage/internal/detector"
	"github.com/visage-id/visage/internal/domain"
	"github.com/visage-id/visage/internal/extractor"
	"github.com/visage-id/visage/internal/liveness"
	"github.com/visage-id/visage/internal/matcher"
)

// SessionLimiter throttles session starts per owner. Implemented by
// ratelimit.RateLimiter.
type SessionLimiter interface {
	CheckSessionLimit(ctx context.Context, ownerID string, limit int) error
}

// CaptureService builds capture sessions. One service instance is shared
// across sessions; each session owns its detector and state machine.
type CaptureService struct {
	store              matcher.RecordStore
	livenessThresholds liveness.Thresholds
	matchThresholds    matcher.Thresholds
	scope              matcher.Scope
	logger             *slog.Logger
	audit              audit.Logger
	clock              func() time.Time
	limiter            SessionLimiter
	sessionLimit       int
}

func NewCaptureService(store matcher.RecordStore, logger *slog.Logger) *CaptureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureService{
		store:              store,
		livenessThresholds: liveness.DefaultThresholds(),
		matchThresholds:    matcher.DefaultThresholds(),
		scope:              matcher.ScopePerUser,
		logger:             logger,
		audit:              audit.NoOpLogger{},
		clock:              time.Now,
	}
}

// WithLivenessThresholds overrides the liveness gate tuning.
func (s *CaptureService) WithLivenessThresholds(t liveness.Thresholds) *CaptureService {
	s.livenessThresholds = t
	return s
}

// WithMatchThresholds overrides the match decision boundaries.
func (s *CaptureService) WithMatchThresholds(t matcher.Thresholds) *CaptureService {
	s.matchThresholds = t
	return s
}

// WithScope selects the matching scope.
func (s *CaptureService) WithScope(scope matcher.Scope) *CaptureService {
	s.scope = scope
	return s
}

// WithAudit attaches the compliance audit trail.
func (s *CaptureService) WithAudit(a audit.Logger) *CaptureService {
	s.audit = a
	return s
}

// WithClock injects the time source. Tests use this to drive the blink
// debounce deterministically.
func (s *CaptureService) WithClock(now func() time.Time) *CaptureService {
	s.clock = now
	return s
}

// WithRateLimit caps session starts per owner within the limiter's
// window. A limit of zero disables the check.
func (s *CaptureService) WithRateLimit(limiter SessionLimiter, limit int) *CaptureService {
	s.limiter = limiter
	s.sessionLimit = limit
	return s
}

// SessionOption configures one session.
type SessionOption func(*Session)

// WithStatusFunc registers a callback receiving user-facing progress
// messages as the liveness gates advance.
func WithStatusFunc(fn func(string)) SessionOption {
	return func(sess *Session) { sess.onStatus = fn }
}

// Session is one user-facing capture flow. The caller owns the frame
// cadence: it calls ProcessNext once per frame tick until a terminal
// result arrives on Result or the session is cancelled. Session methods
// are safe for concurrent use.
type Session struct {
	id            uuid.UUID
	ownerID       string
	walletAddress string

	det       detector.Detector
	analyzer  *liveness.Analyzer
	extractor *extractor.Extractor
	matcher   *matcher.Matcher

	logger *slog.Logger
	audit  audit.Logger
	clock  func() time.Time

	onStatus func(string)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	extracting bool
	done       bool
	cancelled  bool
	lastErr    error

	resultCh chan *domain.CaptureResult
}

// StartSession opens a capture session over the given detector. The
// session takes ownership of the detector and closes it on every
// terminal path.
func (s *CaptureService) StartSession(ctx context.Context, det detector.Detector, ownerID, walletAddress string, opts ...SessionOption) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.limiter != nil && s.sessionLimit > 0 {
		if err := s.limiter.CheckSessionLimit(ctx, ownerID, s.sessionLimit); err != nil {
			s.logger.Warn("session start throttled", "owner_id", ownerID, "error", err)
			return nil, domain.ErrTooManySessions.WithError(err)
		}
	}

	sessCtx, cancel := context.WithCancel(context.Background())

	sess := &Session{
		id:            uuid.New(),
		ownerID:       ownerID,
		walletAddress: walletAddress,
		det:           det,
		extractor:     extractor.New(det),
		logger:        s.logger,
		audit:         s.audit,
		clock:         s.clock,
		ctx:           sessCtx,
		cancel:        cancel,
		resultCh:      make(chan *domain.CaptureResult, 1),
	}
	for _, opt := range opts {
		opt(sess)
	}

	sess.analyzer = liveness.NewAnalyzer(s.livenessThresholds, liveness.WithStatusFunc(sess.status))
	sess.matcher = matcher.New(s.store, s.logger).
		WithThresholds(s.matchThresholds).
		WithScope(s.scope).
		WithAudit(s.audit).
		WithClock(s.clock)

	sess.auditEvent(ctx, audit.EventSessionStarted, true, nil, nil)
	s.logger.Info("capture session started",
		"session_id", sess.id,
		"owner_id", ownerID,
	)

	return sess, nil
}

// ID returns the session identifier used in audit events.
func (sess *Session) ID() uuid.UUID {
	return sess.id
}

// Result delivers the terminal capture result exactly once.
func (sess *Session) Result() <-chan *domain.CaptureResult {
	return sess.resultCh
}

// LivenessState returns a snapshot of the liveness progress.
func (sess *Session) LivenessState() liveness.State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.analyzer.State()
}

// LastError returns the most recent extraction or matching failure. The
// session stays alive after such a failure; see RetryExtraction.
func (sess *Session) LastError() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastErr
}

// ProcessNext pulls one frame from the detector and advances the
// liveness state machine. Frames arriving while extraction is in flight
// are consumed and dropped, never queued: stale landmark data has no
// business influencing a decision made after the gates closed.
func (sess *Session) ProcessNext(ctx context.Context) error {
	sess.mu.Lock()
	if sess.cancelled {
		sess.mu.Unlock()
		return domain.ErrSessionCancelled
	}
	if sess.done {
		sess.mu.Unlock()
		return domain.ErrSessionFinished
	}
	extracting := sess.extracting
	sess.mu.Unlock()

	frame, err := sess.det.NextFrame(ctx)
	if err != nil {
		return err
	}

	if extracting {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cancelled || sess.done || sess.extracting {
		return nil
	}

	event, err := sess.analyzer.ProcessFrame(frame, sess.clock())
	if err != nil {
		sess.logger.Warn("frame rejected", "session_id", sess.id, "error", err)
		return err
	}

	switch event {
	case liveness.EventBlink, liveness.EventBlinkGateUnlocked:
		state := sess.analyzer.State()
		sess.auditEvent(ctx, audit.EventBlinkCounted, true, nil, map[string]string{
			"blink_count": strconv.Itoa(state.BlinkCount),
		})
	case liveness.EventComplete:
		sess.auditEvent(ctx, audit.EventLivenessPassed, true, nil, nil)
		sess.logger.Info("liveness passed", "session_id", sess.id, "owner_id", sess.ownerID)
		sess.beginExtractionLocked()
	}

	return nil
}

// RetryExtraction re-runs descriptor extraction after a failure. It only
// applies once the liveness gates have passed.
func (sess *Session) RetryExtraction() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch {
	case sess.cancelled:
		return domain.ErrSessionCancelled
	case sess.done:
		return domain.ErrSessionFinished
	case sess.extracting:
		return domain.ErrExtractionInFlight
	case !sess.analyzer.Complete():
		return domain.ErrLivenessIncomplete
	}

	sess.beginExtractionLocked()
	return nil
}

// Cancel aborts the session and releases the detector. Cancelling an
// already-terminal session is a no-op.
func (sess *Session) Cancel(ctx context.Context) error {
	sess.mu.Lock()
	if sess.done || sess.cancelled {
		sess.mu.Unlock()
		return nil
	}
	sess.cancelled = true
	sess.mu.Unlock()

	sess.cancel()
	err := sess.det.Close()

	sess.auditEvent(ctx, audit.EventSessionCancelled, true, nil, nil)
	sess.logger.Info("capture session cancelled", "session_id", sess.id, "owner_id", sess.ownerID)
	sess.status("session cancelled")
	return err
}

// beginExtractionLocked transitions into the extraction stage. Caller
// holds sess.mu.
func (sess *Session) beginExtractionLocked() {
	sess.extracting = true
	sess.lastErr = nil
	sess.status("hold still, capturing your face signature")
	go sess.finish()
}

// finish runs extraction and matching off the frame loop, then delivers
// the terminal result. Runs at most one instance at a time, guarded by
// the extracting flag.
func (sess *Session) finish() {
	descriptor, err := sess.extractor.Extract(sess.ctx)
	if err != nil {
		sess.auditEvent(sess.ctx, audit.EventExtractionFailed, false, err, nil)
		sess.logger.Error("descriptor extraction failed",
			"session_id", sess.id,
			"owner_id", sess.ownerID,
			"error", err,
		)
		sess.failStage(err)
		sess.status("could not read your face, please try again")
		return
	}

	sess.auditEvent(sess.ctx, audit.EventDescriptorExtracted, true, nil, map[string]string{
		"dimension": strconv.Itoa(len(descriptor)),
	})

	outcome, err := sess.matcher.MatchAndEnroll(sess.ctx, sess.ownerID, descriptor, sess.walletAddress)
	if err != nil {
		sess.logger.Error("matching failed",
			"session_id", sess.id,
			"owner_id", sess.ownerID,
			"error", err,
		)
		sess.failStage(err)
		sess.status("could not verify your identity, please try again")
		return
	}

	result := &domain.CaptureResult{
		Vector:    descriptor,
		Persisted: outcome.Persisted,
	}
	if outcome.Match.Matched {
		result.Outcome = domain.OutcomeReturningMatch
		result.Similarity = outcome.Match.BestSimilarity
		// A returning match reports when the identity was first
		// captured, not when this session ran.
		result.CapturedAt = outcome.Match.Record.CapturedAt
		result.Persisted = true
		sess.status("welcome back, verified on: " +
			result.CapturedAt.Format(time.RFC3339))
	} else {
		result.Outcome = domain.OutcomeNewEnrollment
		result.Similarity = outcome.Match.BestSimilarity
		result.CapturedAt = outcome.Enrolled.CapturedAt
		sess.status("face enrolled")
	}

	sess.mu.Lock()
	sess.extracting = false
	sess.done = true
	sess.mu.Unlock()

	if err := sess.det.Close(); err != nil {
		sess.logger.Warn("detector close failed", "session_id", sess.id, "error", err)
	}

	sess.resultCh <- result
}

// failStage records a recoverable failure and returns the session to the
// post-liveness, pre-extraction state.
func (sess *Session) failStage(err error) {
	sess.mu.Lock()
	sess.extracting = false
	sess.lastErr = err
	sess.mu.Unlock()
}

func (sess *Session) status(msg string) {
	if sess.onStatus != nil {
		sess.onStatus(msg)
	}
}

func (sess *Session) auditEvent(ctx context.Context, eventType audit.EventType, success bool, err error, metadata map[string]string) {
	event := audit.Event{
		SessionID: sess.id.String(),
		OwnerID:   sess.ownerID,
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if logErr := sess.audit.Log(ctx, event); logErr != nil {
		sess.logger.Warn("audit log failed", "session_id", sess.id, "error", logErr)
	}
}


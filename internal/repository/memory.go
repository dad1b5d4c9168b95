package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/visage-id/visage/internal/domain"
)

// MemoryEnrollmentRepository is an in-process store used by the demo
// harness and by tests that do not need Postgres. Records are copied on
// the way in and out so callers can never mutate stored state.
type MemoryEnrollmentRepository struct {
	mu      sync.RWMutex
	byOwner map[string][]domain.EnrollmentRecord
}

func NewMemoryEnrollmentRepository() *MemoryEnrollmentRepository {
	return &MemoryEnrollmentRepository{
		byOwner: make(map[string][]domain.EnrollmentRecord),
	}
}

func (r *MemoryEnrollmentRepository) Append(ctx context.Context, record *domain.EnrollmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	for _, existing := range r.byOwner[record.OwnerID] {
		if existing.ID == record.ID {
			return nil
		}
	}

	stored := *record
	stored.Vector = record.Vector.Clone()
	r.byOwner[record.OwnerID] = append(r.byOwner[record.OwnerID], stored)
	return nil
}

func (r *MemoryEnrollmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.EnrollmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneRecords(r.byOwner[ownerID]), nil
}

func (r *MemoryEnrollmentRepository) ListAll(ctx context.Context) ([]domain.EnrollmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.EnrollmentRecord
	for _, records := range r.byOwner {
		all = append(all, cloneRecords(records)...)
	}
	return all, nil
}

// Len returns the total number of stored records.
func (r *MemoryEnrollmentRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, records := range r.byOwner {
		n += len(records)
	}
	return n
}

func cloneRecords(records []domain.EnrollmentRecord) []domain.EnrollmentRecord {
	if records == nil {
		return nil
	}
	out := make([]domain.EnrollmentRecord, len(records))
	for i, rec := range records {
		out[i] = rec
		out[i].Vector = rec.Vector.Clone()
	}
	return out
}

var _ EnrollmentRepositoryInterface = (*MemoryEnrollmentRepository)(nil)
var _ EnrollmentRepositoryInterface = (*EnrollmentRepository)(nil)

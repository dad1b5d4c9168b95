package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/visage-id/visage/internal/domain"
)

type EnrollmentRepository struct {
	pool PgxPool
}

func NewEnrollmentRepository(pool PgxPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// Append persists a new enrollment record. Re-inserting a record with an
// ID that already exists is treated as success, so a retried append is
// idempotent.
func (r *EnrollmentRepository) Append(ctx context.Context, record *domain.EnrollmentRecord) error {
	query := `
		INSERT INTO enrollments (id, owner_id, embedding, wallet_address, captured_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	embedding := toVector(record.Vector)

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.OwnerID,
		embedding,
		nullable(record.WalletAddress),
		record.CapturedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("append enrollment: %w", err)
	}

	return nil
}

// ListByOwner fetches the records scoped to one owner, oldest first.
func (r *EnrollmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.EnrollmentRecord, error) {
	query := `
		SELECT id, owner_id, embedding, wallet_address, captured_at
		FROM enrollments
		WHERE owner_id = $1
		ORDER BY captured_at
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments by owner: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAll fetches every record regardless of owner. Legacy global-scope
// matching only.
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]domain.EnrollmentRecord, error) {
	query := `
		SELECT id, owner_id, embedding, wallet_address, captured_at
		FROM enrollments
		ORDER BY captured_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all enrollments: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]domain.EnrollmentRecord, error) {
	var records []domain.EnrollmentRecord
	for rows.Next() {
		var rec domain.EnrollmentRecord
		var embedding pgvector.Vector
		var wallet *string

		if err := rows.Scan(&rec.ID, &rec.OwnerID, &embedding, &wallet, &rec.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}

		rec.Vector = fromVector(embedding)
		if wallet != nil {
			rec.WalletAddress = *wallet
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return records, nil
}

func toVector(descriptor domain.FaceDescriptor) pgvector.Vector {
	floats := make([]float32, len(descriptor))
	for i, v := range descriptor {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

func fromVector(vec pgvector.Vector) domain.FaceDescriptor {
	slice := vec.Slice()
	if slice == nil {
		return nil
	}
	descriptor := make(domain.FaceDescriptor, len(slice))
	for i, v := range slice {
		descriptor[i] = float64(v)
	}
	return descriptor
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/visage-id/visage/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories need. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnrollmentRepositoryInterface defines operations for enrollment data
// access. Records are append-only: there is no update path, and deletion
// is an explicit administrative action outside this interface.
type EnrollmentRepositoryInterface interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.EnrollmentRecord, error)
	ListAll(ctx context.Context) ([]domain.EnrollmentRecord, error)
	Append(ctx context.Context, record *domain.EnrollmentRecord) error
}

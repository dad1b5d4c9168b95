package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visage-id/visage/internal/domain"
)

var capturedAt = time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

func enrollmentRows(records ...domain.EnrollmentRecord) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "owner_id", "embedding", "wallet_address", "captured_at"})
	for _, rec := range records {
		var wallet *string
		if rec.WalletAddress != "" {
			w := rec.WalletAddress
			wallet = &w
		}
		rows.AddRow(rec.ID, rec.OwnerID, toVector(rec.Vector), wallet, rec.CapturedAt)
	}
	return rows
}

func TestEnrollmentRepository_Append(t *testing.T) {
	tests := []struct {
		name      string
		record    *domain.EnrollmentRecord
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "successful append",
			record: &domain.EnrollmentRecord{
				ID:            uuid.New(),
				OwnerID:       "alice",
				Vector:        domain.FaceDescriptor{0.1, 0.2, 0.3},
				WalletAddress: "0xabc",
				CapturedAt:    capturedAt,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO enrollments`).
					WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), pgxmock.AnyArg(), capturedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			wantErr: false,
		},
		{
			name: "duplicate id is idempotent",
			record: &domain.EnrollmentRecord{
				ID:         uuid.New(),
				OwnerID:    "alice",
				Vector:     domain.FaceDescriptor{0.1, 0.2, 0.3},
				CapturedAt: capturedAt,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO enrollments`).
					WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), pgxmock.AnyArg(), capturedAt).
					WillReturnError(errors.New(`duplicate key value violates unique constraint "enrollments_pkey" (SQLSTATE 23505)`))
			},
			wantErr: false,
		},
		{
			name: "database error",
			record: &domain.EnrollmentRecord{
				ID:         uuid.New(),
				OwnerID:    "alice",
				Vector:     domain.FaceDescriptor{0.1, 0.2, 0.3},
				CapturedAt: capturedAt,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO enrollments`).
					WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), pgxmock.AnyArg(), capturedAt).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewEnrollmentRepository(mock)
			err = repo.Append(context.Background(), tt.record)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrollmentRepository_AppendAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO enrollments`).
		WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), pgxmock.AnyArg(), capturedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	record := &domain.EnrollmentRecord{
		OwnerID:    "alice",
		Vector:     domain.FaceDescriptor{0.5},
		CapturedAt: capturedAt,
	}
	repo := NewEnrollmentRepository(mock)
	require.NoError(t, repo.Append(context.Background(), record))
	assert.NotEqual(t, uuid.Nil, record.ID)
}

func TestEnrollmentRepository_ListByOwner(t *testing.T) {
	stored := domain.EnrollmentRecord{
		ID:            uuid.New(),
		OwnerID:       "alice",
		Vector:        domain.FaceDescriptor{0.25, 0.5, 0.75},
		WalletAddress: "0xdef",
		CapturedAt:    capturedAt,
	}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, owner_id, embedding, wallet_address, captured_at FROM enrollments WHERE owner_id = \$1`).
		WithArgs("alice").
		WillReturnRows(enrollmentRows(stored))

	repo := NewEnrollmentRepository(mock)
	records, err := repo.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, stored.ID, records[0].ID)
	assert.Equal(t, "alice", records[0].OwnerID)
	assert.Equal(t, "0xdef", records[0].WalletAddress)
	assert.InDeltaSlice(t, stored.Vector, records[0].Vector, 1e-6)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepository_ListByOwnerEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, owner_id, embedding, wallet_address, captured_at FROM enrollments WHERE owner_id = \$1`).
		WithArgs("nobody").
		WillReturnRows(enrollmentRows())

	repo := NewEnrollmentRepository(mock)
	records, err := repo.ListByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEnrollmentRepository_ListByOwnerError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, owner_id, embedding, wallet_address, captured_at FROM enrollments WHERE owner_id = \$1`).
		WithArgs("alice").
		WillReturnError(errors.New("connection refused"))

	repo := NewEnrollmentRepository(mock)
	_, err = repo.ListByOwner(context.Background(), "alice")
	assert.Error(t, err)
}

func TestEnrollmentRepository_ListAll(t *testing.T) {
	a := domain.EnrollmentRecord{ID: uuid.New(), OwnerID: "alice", Vector: domain.FaceDescriptor{0.1}, CapturedAt: capturedAt}
	b := domain.EnrollmentRecord{ID: uuid.New(), OwnerID: "bob", Vector: domain.FaceDescriptor{0.9}, CapturedAt: capturedAt}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, owner_id, embedding, wallet_address, captured_at FROM enrollments ORDER BY captured_at`).
		WillReturnRows(enrollmentRows(a, b))

	repo := NewEnrollmentRepository(mock)
	records, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestVectorConversionRoundTrip(t *testing.T) {
	descriptor := domain.FaceDescriptor{0.125, -0.5, 0.75, 1.0}
	assert.InDeltaSlice(t, descriptor, fromVector(toVector(descriptor)), 1e-6)
}

func TestFromVector_Empty(t *testing.T) {
	assert.Nil(t, fromVector(pgvector.Vector{}))
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_CheckSessionLimit(t *testing.T) {
	tests := []struct {
		name      string
		ownerID   string
		limit     int
		mockCount int
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "within limit",
			ownerID:   "alice",
			limit:     10,
			mockCount: 3,
			wantErr:   false,
		},
		{
			name:      "at limit boundary",
			ownerID:   "alice",
			limit:     10,
			mockCount: 10,
			wantErr:   false,
		},
		{
			name:      "exceeds limit",
			ownerID:   "alice",
			limit:     10,
			mockCount: 11,
			wantErr:   true,
			errMsg:    "rate limit exceeded: 11/10 sessions in window",
		},
		{
			name:      "no limit configured",
			ownerID:   "alice",
			limit:     0,
			mockCount: 1000,
			wantErr:   false,
		},
		{
			name:      "negative limit",
			ownerID:   "alice",
			limit:     -1,
			mockCount: 1000,
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			rl := NewRateLimiterWithDB(mock, time.Minute)

			ctx := context.Background()

			if tt.limit > 0 {
				rows := pgxmock.NewRows([]string{"count"}).AddRow(tt.mockCount)
				mock.ExpectQuery("WITH current_count AS").
					WithArgs(
						pgxmock.AnyArg(), // key
						pgxmock.AnyArg(), // window_start
						pgxmock.AnyArg(), // window_end (now)
						tt.ownerID,       // owner_id
					).
					WillReturnRows(rows)
			}

			err = rl.CheckSessionLimit(ctx, tt.ownerID, tt.limit)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRateLimiter_CheckSessionLimitQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rl := NewRateLimiterWithDB(mock, time.Minute)

	mock.ExpectQuery("WITH current_count AS").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "alice").
		WillReturnError(pgx.ErrNoRows)

	err = rl.CheckSessionLimit(context.Background(), "alice", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check rate limit")
}

func TestRateLimiter_CleanupExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rl := NewRateLimiterWithDB(mock, time.Minute)

	mock.ExpectExec("DELETE FROM rate_limit_counters").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	deleted, err := rl.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
}

func TestRateLimiter_GetCurrentCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rl := NewRateLimiterWithDB(mock, time.Minute)

	rows := pgxmock.NewRows([]string{"count"}).AddRow(7)
	mock.ExpectQuery("SELECT count").
		WithArgs("session_rate:alice", pgxmock.AnyArg()).
		WillReturnRows(rows)

	count, err := rl.GetCurrentCount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestRateLimiter_GetCurrentCountNoRecords(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rl := NewRateLimiterWithDB(mock, time.Minute)

	mock.ExpectQuery("SELECT count").
		WithArgs("session_rate:ghost", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	count, err := rl.GetCurrentCount(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRateLimiter_ResetLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rl := NewRateLimiterWithDB(mock, time.Minute)

	mock.ExpectExec("DELETE FROM rate_limit_counters").
		WithArgs("session_rate:alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, rl.ResetLimit(context.Background(), "alice"))
}

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/loyalty/internal/infra/pgutils"
)

func TestClampPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{limit: 0, offset: 0, wantLimit: DefaultPageSize, wantOffset: 0},
		{limit: -3, offset: -1, wantLimit: DefaultPageSize, wantOffset: 0},
		{limit: 5, offset: 10, wantLimit: 5, wantOffset: 10},
		{limit: 1_000, offset: 0, wantLimit: MaxPageSize, wantOffset: 0},
	}

	for _, tt := range tests {
		limit, offset := ClampPage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOffset, offset)
	}
}

func TestEngine_OpenAccount(t *testing.T) {
	t.Parallel()

	t.Run("created_at_floor_tier", func(t *testing.T) {
		t.Parallel()

		e, mock := newTestEngine(t)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs(11, "Bronze").
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(11, 0, 0, "Bronze", 0, now, now))

		acc, err := e.OpenAccount(context.Background(), 11)
		require.NoError(t, err)
		assert.Equal(t, uint64(11), acc.UserID)
		assert.Zero(t, acc.Balance)
		assert.Equal(t, "Bronze", acc.Tier)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already_open", func(t *testing.T) {
		t.Parallel()

		e, mock := newTestEngine(t)

		mock.ExpectQuery(`INSERT INTO accounts`).
			WillReturnError(&pgconn.PgError{Code: pgutils.CodeUniqueViolation})

		_, err := e.OpenAccount(context.Background(), 11)
		require.ErrorIs(t, err, ErrAccountExists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero_user", func(t *testing.T) {
		t.Parallel()

		e, mock := newTestEngine(t)

		_, err := e.OpenAccount(context.Background(), 0)
		require.ErrorIs(t, err, ErrInvalidUserID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_GetBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lifetime int64
		tier     string
		wantNext string
		wantGap  int64
	}{
		{name: "silver_to_gold", lifetime: 550, tier: "Silver", wantNext: "Gold", wantGap: 1_450},
		{name: "fresh_bronze", lifetime: 0, tier: "Bronze", wantNext: "Silver", wantGap: 500},
		{name: "top_tier", lifetime: 9_000, tier: "Platinum", wantNext: "", wantGap: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, mock := newTestEngine(t)
			now := time.Now()

			mock.ExpectQuery(`SELECT .+ FROM accounts WHERE user_id = \$1`).
				WithArgs(1).
				WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, 350, tt.lifetime, tt.tier, 4, now, now))

			view, err := e.GetBalance(context.Background(), 1)
			require.NoError(t, err)

			assert.Equal(t, BalanceView{
				UserID:         1,
				Balance:        350,
				LifetimePoints: tt.lifetime,
				Tier:           tt.tier,
				NextTier:       tt.wantNext,
				PointsToNext:   tt.wantGap,
			}, view)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEngine_GetBalanceUnknownUser(t *testing.T) {
	t.Parallel()

	e, mock := newTestEngine(t)

	mock.ExpectQuery(`FROM accounts`).WillReturnRows(sqlmock.NewRows(accountCols))

	_, err := e.GetBalance(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_UserIDBeyondBigint(t *testing.T) {
	t.Parallel()

	const id uint64 = 18446744073709551615

	tests := []struct {
		name string
		call func(e *Engine) error
	}{
		{
			name: "open_account",
			call: func(e *Engine) error {
				_, err := e.OpenAccount(context.Background(), id)
				return err
			},
		},
		{
			name: "balance",
			call: func(e *Engine) error {
				_, err := e.GetBalance(context.Background(), id)
				return err
			},
		},
		{
			name: "history",
			call: func(e *Engine) error {
				_, err := e.GetHistory(context.Background(), id, 10, 0)
				return err
			},
		},
		{
			name: "check_account",
			call: func(e *Engine) error { return e.CheckAccount(context.Background(), MaxUserID+1) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, mock := newTestEngine(t)

			err := tt.call(e)
			require.ErrorIs(t, err, ErrInvalidUserID)
			assert.NotErrorIs(t, err, ErrStoreUnavailable)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEngine_GetHistoryClampsPaging(t *testing.T) {
	t.Parallel()

	e, mock := newTestEngine(t)
	now := time.Now()

	mock.ExpectQuery(`FROM accounts WHERE user_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, 350, 550, "Silver", 3, now, now))
	mock.ExpectQuery(`FROM ledger_transactions WHERE user_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(1, MaxPageSize, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "kind", "delta", "description", "idempotency_key",
			"balance_after", "lifetime_after", "tier_after", "created_at",
		}).
			AddRow(3, 1, "spend", -200, "checkout", "", 350, 550, "Silver", now).
			AddRow(2, 1, "earn", 450, "purchase", "order-7", 550, 550, "Silver", now.Add(-time.Minute)))

	recs, err := e.GetHistory(context.Background(), 1, 500, -4)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(-200), recs[0].Delta)
	assert.Equal(t, "order-7", recs[1].IdempotencyKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

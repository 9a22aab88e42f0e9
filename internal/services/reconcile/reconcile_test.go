package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/loyalty/internal/infra/metrics"
	"github.com/fastprodman/loyalty/internal/tiers"
)

var stateCols = []string{"user_id", "balance", "lifetime_points", "tier", "ledger_balance", "ledger_credits"}

func newTestReconciler(t *testing.T, pageSize int) (*Reconciler, sqlmock.Sqlmock, *metrics.Collectors) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.New()
	r := New(db, tiers.Default(), m)
	r.pageSize = pageSize

	return r, mock, m
}

func TestRun_PagesAndFindsDrift(t *testing.T) {
	t.Parallel()

	r, mock, m := newTestReconciler(t, 2)

	mock.ExpectQuery(`FROM accounts a LEFT JOIN ledger_transactions t`).
		WithArgs(0, 2).
		WillReturnRows(sqlmock.NewRows(stateCols).
			AddRow(1, 350, 550, "Silver", 350, 550).
			AddRow(2, 100, 100, "Bronze", 90, 100))
	mock.ExpectQuery(`FROM accounts a LEFT JOIN ledger_transactions t`).
		WithArgs(2, 2).
		WillReturnRows(sqlmock.NewRows(stateCols).
			AddRow(3, 600, 600, "Bronze", 600, 600))

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Checked)
	require.Len(t, rep.Drifted, 2)

	assert.Equal(t, uint64(2), rep.Drifted[0].UserID)
	assert.Equal(t, int64(90), rep.Drifted[0].LedgerBalance)

	assert.Equal(t, uint64(3), rep.Drifted[1].UserID)
	assert.Equal(t, "Silver", rep.Drifted[1].ExpectedTier)

	require.NoError(t, mock.ExpectationsWereMet())

	n, err := testutil.GatherAndCount(m.Registry(), "loyalty_reconcile_drifted_accounts")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_FullPageTriggersAnotherQuery(t *testing.T) {
	t.Parallel()

	r, mock, _ := newTestReconciler(t, 1)

	mock.ExpectQuery(`LEFT JOIN ledger_transactions`).
		WithArgs(0, 1).
		WillReturnRows(sqlmock.NewRows(stateCols).AddRow(5, 0, 0, "Bronze", 0, 0))
	mock.ExpectQuery(`LEFT JOIN ledger_transactions`).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows(stateCols))

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Checked)
	assert.Empty(t, rep.Drifted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StoreError(t *testing.T) {
	t.Parallel()

	r, mock, _ := newTestReconciler(t, 10)

	mock.ExpectQuery(`LEFT JOIN ledger_transactions`).WillReturnError(errors.New("conn reset"))

	_, err := r.Run(context.Background())
	require.Error(t, err)
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestReconciler(t, 10)

	c, err := r.Schedule("@every 1h", time.Minute)
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)

	_, err = r.Schedule("not a schedule", time.Minute)
	require.Error(t, err)
}

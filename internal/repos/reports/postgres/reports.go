package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/repos/reports"
	"github.com/jmoiron/sqlx"
)

var _ reports.Reports = (*reportsRepo)(nil)

type reportsRepo struct{ db *sqlx.DB }

func New(db *sql.DB) *reportsRepo {
	return &reportsRepo{db: sqlx.NewDb(db, pgutils.DriverName)}
}

func (r *reportsRepo) TierCounts(ctx context.Context) ([]reports.TierCount, error) {
	var out []reports.TierCount

	err := r.db.SelectContext(ctx, &out, `
		SELECT tier, COUNT(*) AS accounts
		FROM accounts
		GROUP BY tier
	`)
	if err != nil {
		return nil, fmt.Errorf("select tier counts: %w", err)
	}

	return out, nil
}

// KindTotals sums absolute points moved per entry kind.
func (r *reportsRepo) KindTotals(ctx context.Context) ([]reports.KindTotal, error) {
	var out []reports.KindTotal

	err := r.db.SelectContext(ctx, &out, `
		SELECT kind, COUNT(*) AS transactions, COALESCE(SUM(ABS(delta)), 0) AS points
		FROM ledger_transactions
		GROUP BY kind
		ORDER BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("select kind totals: %w", err)
	}

	return out, nil
}

func (r *reportsRepo) AccountTotals(ctx context.Context) (reports.AccountTotals, error) {
	var out reports.AccountTotals

	err := r.db.GetContext(ctx, &out, `
		SELECT COUNT(*) AS accounts,
		       COALESCE(SUM(balance), 0) AS balance,
		       COALESCE(SUM(lifetime_points), 0) AS lifetime_points
		FROM accounts
	`)
	if err != nil {
		return reports.AccountTotals{}, fmt.Errorf("select account totals: %w", err)
	}

	return out, nil
}

// LedgerStates pages through accounts by user id (keyset) with ledger sums.
func (r *reportsRepo) LedgerStates(ctx context.Context, afterUserID uint64, limit int) ([]reports.LedgerState, error) {
	var out []reports.LedgerState

	err := r.db.SelectContext(ctx, &out, `
		SELECT a.user_id,
		       a.balance,
		       a.lifetime_points,
		       a.tier,
		       COALESCE(SUM(t.delta), 0) AS ledger_balance,
		       COALESCE(SUM(t.delta) FILTER (WHERE t.delta > 0), 0) AS ledger_credits
		FROM accounts a
		LEFT JOIN ledger_transactions t ON t.user_id = a.user_id
		WHERE a.user_id > $1
		GROUP BY a.user_id
		ORDER BY a.user_id
		LIMIT $2
	`, afterUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("select ledger states: %w", err)
	}

	return out, nil
}

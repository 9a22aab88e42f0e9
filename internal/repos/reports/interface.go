package reports

import "context"

type TierCount struct {
	Tier     string `db:"tier" json:"tier"`
	Accounts int64  `db:"accounts" json:"accounts"`
}

type KindTotal struct {
	Kind         string `db:"kind" json:"kind"`
	Transactions int64  `db:"transactions" json:"transactions"`
	Points       int64  `db:"points" json:"points"`
}

type AccountTotals struct {
	Accounts       int64 `db:"accounts" json:"accounts"`
	Balance        int64 `db:"balance" json:"balance"`
	LifetimePoints int64 `db:"lifetime_points" json:"lifetimePoints"`
}

// LedgerState is an account row next to the figures recomputed from its
// ledger entries.
type LedgerState struct {
	UserID         uint64 `db:"user_id"`
	Balance        int64  `db:"balance"`
	LifetimePoints int64  `db:"lifetime_points"`
	Tier           string `db:"tier"`
	LedgerBalance  int64  `db:"ledger_balance"`
	LedgerCredits  int64  `db:"ledger_credits"`
}

type Reports interface {
	TierCounts(ctx context.Context) ([]TierCount, error)
	KindTotals(ctx context.Context) ([]KindTotal, error)
	AccountTotals(ctx context.Context) (AccountTotals, error)
	LedgerStates(ctx context.Context, afterUserID uint64, limit int) ([]LedgerState, error)
}

package accounts

import (
	"database/sql"

	"github.com/fastprodman/loyalty/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

const accountColumns = `user_id, balance, lifetime_points, tier, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (accounts.Account, error) {
	var acc accounts.Account

	err := row.Scan(
		&acc.UserID,
		&acc.Balance,
		&acc.LifetimePoints,
		&acc.Tier,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)

	return acc, err
}

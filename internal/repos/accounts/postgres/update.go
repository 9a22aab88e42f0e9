package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/loyalty/internal/repos/accounts"
)

// Update writes balance, lifetime points and tier if acc.Version still
// matches the stored row. The returned account carries the bumped version.
func (r *accountsRepo) Update(ctx context.Context, tx *sql.Tx, acc accounts.Account) (accounts.Account, error) {
	updated, err := scanAccount(tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = $2,
		    lifetime_points = $3,
		    tier = $4,
		    version = version + 1,
		    updated_at = now()
		WHERE user_id = $1
		  AND version = $5
		RETURNING `+accountColumns,
		acc.UserID, acc.Balance, acc.LifetimePoints, acc.Tier, acc.Version,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrVersionConflict
		}

		return accounts.Account{}, fmt.Errorf("update account: %w", err)
	}

	return updated, nil
}

package accounts

import (
	"context"
	"fmt"

	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/repos/accounts"
)

// Create inserts a fresh account with zero balance at the given tier.
func (r *accountsRepo) Create(ctx context.Context, userID uint64, tier string) (accounts.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (user_id, balance, lifetime_points, tier)
		VALUES ($1, 0, 0, $2)
		RETURNING `+accountColumns,
		userID, tier,
	))
	if err != nil {
		if pgutils.HasCode(err, pgutils.CodeUniqueViolation) {
			return accounts.Account{}, accounts.ErrAccountExists
		}

		return accounts.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return acc, nil
}

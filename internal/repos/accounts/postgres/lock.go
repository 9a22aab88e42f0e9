package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/loyalty/internal/repos/accounts"
)

// LockForUpdate reads the account row and holds its lock until tx ends.
func (r *accountsRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, userID uint64) (accounts.Account, error) {
	acc, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("lock account: %w", err)
	}

	return acc, nil
}

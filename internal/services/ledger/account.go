package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastprodman/loyalty/internal/repos/accounts"
	"github.com/fastprodman/loyalty/internal/repos/transactions"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPage normalizes list paging input.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	limit = min(limit, MaxPageSize)

	return limit, max(offset, 0)
}

// BalanceView is the read model served for a single account.
type BalanceView struct {
	UserID         uint64 `json:"userId"`
	Balance        int64  `json:"balance"`
	LifetimePoints int64  `json:"lifetimePoints"`
	Tier           string `json:"tier"`
	NextTier       string `json:"nextTier,omitempty"`
	PointsToNext   int64  `json:"pointsToNext"`
}

// OpenAccount creates the account at the floor tier with no points.
func (e *Engine) OpenAccount(ctx context.Context, userID uint64) (accounts.Account, error) {
	err := ValidateUserID(userID)
	if err != nil {
		return accounts.Account{}, err
	}

	acc, err := e.accounts.Create(ctx, userID, e.tiers.Floor().Name)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountExists) {
			return accounts.Account{}, fmt.Errorf("user %d: %w", userID, ErrAccountExists)
		}

		return accounts.Account{}, fmt.Errorf("open account: %w", StoreError(err))
	}

	return acc, nil
}

// GetBalance reads the account without locking.
func (e *Engine) GetBalance(ctx context.Context, userID uint64) (BalanceView, error) {
	acc, err := e.getAccount(ctx, userID)
	if err != nil {
		return BalanceView{}, err
	}

	view := BalanceView{
		UserID:         acc.UserID,
		Balance:        acc.Balance,
		LifetimePoints: acc.LifetimePoints,
		Tier:           acc.Tier,
	}

	next, remaining, ok := e.tiers.Next(acc.LifetimePoints)
	if ok {
		view.NextTier = next.Name
		view.PointsToNext = remaining
	}

	return view, nil
}

// GetHistory lists the user's ledger entries, newest first.
func (e *Engine) GetHistory(ctx context.Context, userID uint64, limit, offset int) ([]transactions.Record, error) {
	err := e.CheckAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit, offset = ClampPage(limit, offset)

	recs, err := e.txns.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", StoreError(err))
	}

	return recs, nil
}

// CheckAccount fails with ErrNotFound unless the account is open.
func (e *Engine) CheckAccount(ctx context.Context, userID uint64) error {
	_, err := e.getAccount(ctx, userID)

	return err
}

func (e *Engine) getAccount(ctx context.Context, userID uint64) (accounts.Account, error) {
	err := ValidateUserID(userID)
	if err != nil {
		return accounts.Account{}, err
	}

	acc, err := e.accounts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return accounts.Account{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}

		return accounts.Account{}, fmt.Errorf("get account: %w", StoreError(err))
	}

	return acc, nil
}

package transactions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrDuplicateTransaction = errors.New("duplicate transaction")

// Kind is the category of a ledger entry. Debit kinds carry a negative delta.
type Kind string

const (
	KindEarn        Kind = "earn"
	KindSpend       Kind = "spend"
	KindRedeem      Kind = "redeem"
	KindAdminAdjust Kind = "admin-adjust"
)

// Record is one immutable ledger entry with the account state it produced.
type Record struct {
	ID             int64     `json:"id"`
	UserID         uint64    `json:"userId"`
	Kind           Kind      `json:"kind"`
	Delta          int64     `json:"delta"`
	Description    string    `json:"description"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
	BalanceAfter   int64     `json:"balanceAfter"`
	LifetimeAfter  int64     `json:"lifetimeAfter"`
	TierAfter      string    `json:"tierAfter"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Transactions interface {
	Insert(ctx context.Context, tx *sql.Tx, rec Record) (Record, error)
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]Record, error)
}

package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrVersionConflict = errors.New("account version conflict")
)

// Account is the materialized balance row of a user.
type Account struct {
	UserID         uint64
	Balance        int64
	LifetimePoints int64
	Tier           string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Accounts interface {
	Create(ctx context.Context, userID uint64, tier string) (Account, error)
	Get(ctx context.Context, userID uint64) (Account, error)
	LockForUpdate(ctx context.Context, tx *sql.Tx, userID uint64) (Account, error)
	Update(ctx context.Context, tx *sql.Tx, acc Account) (Account, error)
}

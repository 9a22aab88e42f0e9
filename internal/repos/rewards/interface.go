package rewards

import (
	"context"
	"database/sql"
	"errors"
)

var ErrRewardNotFound = errors.New("reward not found")

// Reward is a read-only catalog entry.
type Reward struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Cost     int64  `json:"cost"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

type Rewards interface {
	GetForShare(ctx context.Context, tx *sql.Tx, rewardID uint64) (Reward, error)
	ListActive(ctx context.Context) ([]Reward, error)
}

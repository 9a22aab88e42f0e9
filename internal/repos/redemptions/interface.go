package redemptions

import (
	"context"
	"database/sql"
	"time"
)

// Redemption pairs a reward with the ledger entry that paid for it.
// PointsSpent is the reward cost at redemption time.
type Redemption struct {
	ID            int64     `json:"id"`
	UserID        uint64    `json:"userId"`
	RewardID      uint64    `json:"rewardId"`
	PointsSpent   int64     `json:"pointsSpent"`
	TransactionID int64     `json:"transactionId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Redemptions interface {
	Insert(ctx context.Context, tx *sql.Tx, red Redemption) (Redemption, error)
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]Redemption, error)
}

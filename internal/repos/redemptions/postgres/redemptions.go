package redemptions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/loyalty/internal/repos/redemptions"
)

var _ redemptions.Redemptions = (*redemptionsRepo)(nil)

type redemptionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *redemptionsRepo {
	return &redemptionsRepo{db: db}
}

func (r *redemptionsRepo) Insert(ctx context.Context, tx *sql.Tx, red redemptions.Redemption) (redemptions.Redemption, error) {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO redemptions (user_id, reward_id, points_spent, ledger_transaction_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, red.UserID, red.RewardID, red.PointsSpent, red.TransactionID).Scan(&red.ID, &red.CreatedAt)
	if err != nil {
		return redemptions.Redemption{}, fmt.Errorf("insert redemption: %w", err)
	}

	return red, nil
}

func (r *redemptionsRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]redemptions.Redemption, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, reward_id, points_spent, ledger_transaction_id, created_at
		FROM redemptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query redemptions: %w", err)
	}
	defer rows.Close()

	out := make([]redemptions.Redemption, 0, max(limit, 0))

	for rows.Next() {
		var red redemptions.Redemption

		err = rows.Scan(&red.ID, &red.UserID, &red.RewardID, &red.PointsSpent, &red.TransactionID, &red.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}

		out = append(out, red)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate redemptions: %w", err)
	}

	return out, nil
}

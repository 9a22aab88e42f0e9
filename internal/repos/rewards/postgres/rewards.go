package rewards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/loyalty/internal/repos/rewards"
)

var _ rewards.Rewards = (*rewardsRepo)(nil)

type rewardsRepo struct{ db *sql.DB }

func New(db *sql.DB) *rewardsRepo {
	return &rewardsRepo{db: db}
}

// GetForShare reads the reward inside tx and keeps it from being changed
// until tx ends, so cost and active flag stay valid for the redemption.
func (r *rewardsRepo) GetForShare(ctx context.Context, tx *sql.Tx, rewardID uint64) (rewards.Reward, error) {
	var rw rewards.Reward

	err := tx.QueryRowContext(ctx, `
		SELECT id, name, cost, category, active
		FROM rewards
		WHERE id = $1
		FOR SHARE
	`, rewardID).Scan(&rw.ID, &rw.Name, &rw.Cost, &rw.Category, &rw.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rewards.Reward{}, rewards.ErrRewardNotFound
		}

		return rewards.Reward{}, fmt.Errorf("get reward: %w", err)
	}

	return rw, nil
}

func (r *rewardsRepo) ListActive(ctx context.Context) ([]rewards.Reward, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, cost, category, active
		FROM rewards
		WHERE active
		ORDER BY cost, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var out []rewards.Reward

	for rows.Next() {
		var rw rewards.Reward

		err = rows.Scan(&rw.ID, &rw.Name, &rw.Cost, &rw.Category, &rw.Active)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}

		out = append(out, rw)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}

	return out, nil
}

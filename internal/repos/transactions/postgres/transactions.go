package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

// Insert appends rec and fills in ID and CreatedAt.
// A reused idempotency key for the same user yields ErrDuplicateTransaction.
func (r *transactionsRepo) Insert(ctx context.Context, tx *sql.Tx, rec transactions.Record) (transactions.Record, error) {
	key := sql.NullString{String: rec.IdempotencyKey, Valid: rec.IdempotencyKey != ""}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_transactions (
			user_id, kind, delta, description, idempotency_key,
			balance_after, lifetime_after, tier_after
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		rec.UserID, string(rec.Kind), rec.Delta, rec.Description, key,
		rec.BalanceAfter, rec.LifetimeAfter, rec.TierAfter,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if pgutils.HasCode(err, pgutils.CodeUniqueViolation) {
			return transactions.Record{}, transactions.ErrDuplicateTransaction
		}

		return transactions.Record{}, fmt.Errorf("insert transaction: %w", err)
	}

	return rec, nil
}

// ListByUser returns the user's entries, newest first.
func (r *transactionsRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]transactions.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, delta, description, COALESCE(idempotency_key, ''),
		       balance_after, lifetime_after, tier_after, created_at
		FROM ledger_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]transactions.Record, 0, max(limit, 0))

	for rows.Next() {
		var rec transactions.Record

		err = rows.Scan(
			&rec.ID, &rec.UserID, &rec.Kind, &rec.Delta, &rec.Description, &rec.IdempotencyKey,
			&rec.BalanceAfter, &rec.LifetimeAfter, &rec.TierAfter, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fastprodman/loyalty/internal/infra/metrics"
	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/loyalty/internal/repos/accounts/postgres"
	"github.com/fastprodman/loyalty/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/loyalty/internal/repos/transactions/postgres"
	"github.com/fastprodman/loyalty/internal/tiers"
)

const tracerName = "loyalty/ledger"

// Engine is the only writer of account balances. Every mutation locks the
// account row, recomputes balance, lifetime points and tier, bumps the row
// version and appends exactly one ledger entry, all in one DB transaction.
type Engine struct {
	db       *sql.DB
	accounts accounts.Accounts
	txns     transactions.Transactions
	tiers    *tiers.Table
	metrics  *metrics.Collectors
	tracer   trace.Tracer
}

func New(db *sql.DB, table *tiers.Table, m *metrics.Collectors) *Engine {
	return &Engine{
		db:       db,
		accounts: pgaccounts.New(db),
		txns:     pgtransactions.New(db),
		tiers:    table,
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
	}
}

// amountFunc resolves the amount of a delta once the account row is locked.
type amountFunc func(acc accounts.Account) (int64, error)

// ApplyDelta runs d as its own atomic unit.
func (e *Engine) ApplyDelta(ctx context.Context, d Delta) (Result, error) {
	return e.run(ctx, d, nil)
}

// ApplyInTx applies d inside a transaction owned by the caller, so the ledger
// entry can be committed together with the caller's own rows. The caller must
// roll back on error.
func (e *Engine) ApplyInTx(ctx context.Context, tx *sql.Tx, d Delta) (Result, error) {
	start := time.Now()

	ctx, span := e.startSpan(ctx, "ledger.apply_in_tx", d)
	defer span.End()

	res, err := e.applyValidated(ctx, tx, d, nil)
	e.finish(span, d.Op, start, err)

	return res, err
}

// Earn credits amount and raises lifetime points.
func (e *Engine) Earn(ctx context.Context, userID uint64, amount int64, description, idempotencyKey string) (Result, error) {
	return e.ApplyDelta(ctx, Delta{
		UserID:         userID,
		Op:             OpEarn,
		Amount:         amount,
		Description:    description,
		IdempotencyKey: idempotencyKey,
	})
}

// Spend debits amount. Lifetime points and tier are left alone.
func (e *Engine) Spend(ctx context.Context, userID uint64, amount int64, description, idempotencyKey string) (Result, error) {
	return e.ApplyDelta(ctx, Delta{
		UserID:         userID,
		Op:             OpSpend,
		Amount:         amount,
		Description:    description,
		IdempotencyKey: idempotencyKey,
	})
}

// AdminAdjust credits a positive amount and debits a negative one.
func (e *Engine) AdminAdjust(ctx context.Context, userID uint64, amount int64, description, idempotencyKey string) (Result, error) {
	if description == "" {
		return Result{}, ErrDescriptionRequired
	}

	d := Delta{
		UserID:         userID,
		Op:             OpAdminCredit,
		Amount:         amount,
		Description:    description,
		IdempotencyKey: idempotencyKey,
	}

	switch {
	case amount == 0:
		return Result{}, fmt.Errorf("%w: adjustment of 0", ErrInvalidAmount)
	case amount == math.MinInt64:
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	case amount < 0:
		d.Op = OpAdminDebit
		d.Amount = -amount
	}

	return e.ApplyDelta(ctx, d)
}

// Accrue earns basePoints scaled by the multiplier of the tier the account
// holds at the time of the call, rounded down.
func (e *Engine) Accrue(ctx context.Context, userID uint64, basePoints int64, description, idempotencyKey string) (Result, error) {
	d := Delta{
		UserID:         userID,
		Op:             OpEarn,
		Amount:         basePoints,
		Description:    description,
		IdempotencyKey: idempotencyKey,
	}

	return e.run(ctx, d, func(acc accounts.Account) (int64, error) {
		tier := e.tiers.Derive(acc.LifetimePoints)

		points, ok := tier.Apply(basePoints)
		if !ok {
			return 0, fmt.Errorf("%w: %d base points overflow at %s", ErrInvalidAmount, basePoints, tier.Name)
		}

		if points == 0 {
			return 0, fmt.Errorf("%w: %d base points round to 0 at %s", ErrInvalidAmount, basePoints, tier.Name)
		}

		return points, nil
	})
}

func (e *Engine) run(ctx context.Context, d Delta, amount amountFunc) (Result, error) {
	start := time.Now()

	ctx, span := e.startSpan(ctx, "ledger.apply_delta", d)
	defer span.End()

	var res Result

	err := d.validate()
	if err == nil {
		err = pgutils.WithTx(ctx, e.db, func(tx *sql.Tx) error {
			var applyErr error

			res, applyErr = e.apply(ctx, tx, d, amount)

			return applyErr
		})
	}

	err = StoreError(err)
	e.finish(span, d.Op, start, err)

	if err != nil {
		return Result{}, fmt.Errorf("apply %s: %w", d.Op, err)
	}

	return res, nil
}

func (e *Engine) applyValidated(ctx context.Context, tx *sql.Tx, d Delta, amount amountFunc) (Result, error) {
	err := d.validate()
	if err != nil {
		return Result{}, fmt.Errorf("apply %s: %w", d.Op, err)
	}

	res, err := e.apply(ctx, tx, d, amount)
	if err != nil {
		return Result{}, fmt.Errorf("apply %s: %w", d.Op, StoreError(err))
	}

	return res, nil
}

// apply is the locked read-modify-write-log sequence. d must be valid.
func (e *Engine) apply(ctx context.Context, tx *sql.Tx, d Delta, amount amountFunc) (Result, error) {
	acc, err := e.accounts.LockForUpdate(ctx, tx, d.UserID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return Result{}, fmt.Errorf("user %d: %w", d.UserID, ErrNotFound)
		}

		return Result{}, err
	}

	if amount != nil {
		d.Amount, err = amount(acc)
		if err != nil {
			return Result{}, err
		}
	}

	next, delta, err := e.compute(acc, d)
	if err != nil {
		return Result{}, err
	}

	updated, err := e.accounts.Update(ctx, tx, next)
	if err != nil {
		return Result{}, err
	}

	kind, _ := d.Op.Kind()

	rec, err := e.txns.Insert(ctx, tx, transactions.Record{
		UserID:         d.UserID,
		Kind:           kind,
		Delta:          delta,
		Description:    d.Description,
		IdempotencyKey: d.IdempotencyKey,
		BalanceAfter:   updated.Balance,
		LifetimeAfter:  updated.LifetimePoints,
		TierAfter:      updated.Tier,
	})
	if err != nil {
		if errors.Is(err, transactions.ErrDuplicateTransaction) {
			return Result{}, fmt.Errorf("key %q: %w", d.IdempotencyKey, ErrDuplicateTransaction)
		}

		return Result{}, err
	}

	return Result{
		Balance:        updated.Balance,
		LifetimePoints: updated.LifetimePoints,
		Tier:           updated.Tier,
		Transaction:    rec,
	}, nil
}

// compute returns the account after d and the signed ledger delta.
// The tier is always re-derived from lifetime points; a debit leaves
// lifetime points and therefore the tier unchanged.
func (e *Engine) compute(acc accounts.Account, d Delta) (accounts.Account, int64, error) {
	var delta int64

	if d.Op.Credit() {
		if acc.Balance > math.MaxInt64-d.Amount || acc.LifetimePoints > math.MaxInt64-d.Amount {
			return accounts.Account{}, 0, fmt.Errorf("%w: credit of %d overflows", ErrInvalidAmount, d.Amount)
		}

		acc.Balance += d.Amount
		acc.LifetimePoints += d.Amount
		delta = d.Amount
	} else {
		if acc.Balance < d.Amount {
			return accounts.Account{}, 0, fmt.Errorf("balance %d, requested %d: %w", acc.Balance, d.Amount, ErrInsufficientBalance)
		}

		acc.Balance -= d.Amount
		delta = -d.Amount
	}

	acc.Tier = e.tiers.Derive(acc.LifetimePoints).Name

	return acc, delta, nil
}

func (e *Engine) startSpan(ctx context.Context, name string, d Delta) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("ledger.op", string(d.Op)),
		attribute.Int64("ledger.amount", d.Amount),
		attribute.String("ledger.user_id", fmt.Sprint(d.UserID)),
	))
}

func (e *Engine) finish(span trace.Span, op Op, start time.Time, err error) {
	e.metrics.ObserveLedgerOp(string(op), resultLabel(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return
	}

	span.SetStatus(codes.Ok, "applied")
}

package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fastprodman/loyalty/internal/infra/pgtestutil"
	"github.com/fastprodman/loyalty/internal/tiers"
)

func TestEngine_ConcurrentEarnsSerialize(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	e := New(db, tiers.Default(), nil)
	ctx := context.Background()

	_, err := e.OpenAccount(ctx, 1)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	var wg sync.WaitGroup

	errs := make(chan error, 2)

	for _, amount := range []int64{10, 20} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, earnErr := e.Earn(ctx, 1, amount, "concurrent", "")
			errs <- earnErr
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("earn: %v", err)
		}
	}

	view, err := e.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if view.Balance != 30 || view.LifetimePoints != 30 {
		t.Fatalf("want 30/30, got %d/%d", view.Balance, view.LifetimePoints)
	}

	recs, err := e.GetHistory(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}

	var sum int64
	for _, r := range recs {
		sum += r.Delta
	}
	if sum != view.Balance {
		t.Fatalf("ledger sum %d != balance %d", sum, view.Balance)
	}
}

func TestEngine_ScenarioLedgerSumMatchesBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	e := New(db, tiers.Default(), nil)
	ctx := context.Background()

	_, err := e.OpenAccount(ctx, 2)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	res, err := e.Earn(ctx, 2, 100, "first", "k-1")
	if err != nil || res.Tier != "Bronze" || res.Balance != 100 {
		t.Fatalf("earn 100: %+v, %v", res, err)
	}

	res, err = e.Earn(ctx, 2, 450, "second", "k-2")
	if err != nil || res.Tier != "Silver" || res.Balance != 550 {
		t.Fatalf("earn 450: %+v, %v", res, err)
	}

	_, err = e.Spend(ctx, 2, 600, "too much", "")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("spend 600: want ErrInsufficientBalance, got %v", err)
	}

	_, err = e.Earn(ctx, 2, 450, "second again", "k-2")
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("reused key: want ErrDuplicateTransaction, got %v", err)
	}

	res, err = e.AdminAdjust(ctx, 2, -500, "correction", "")
	if err != nil || res.Balance != 50 || res.Tier != "Silver" || res.LifetimePoints != 550 {
		t.Fatalf("admin debit: %+v, %v", res, err)
	}

	recs, err := e.GetHistory(ctx, 2, 0, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("want 3 records, got %d", len(recs))
	}

	var sum int64
	for _, r := range recs {
		sum += r.Delta
	}
	if sum != 50 {
		t.Fatalf("ledger sum: want 50, got %d", sum)
	}

	_, err = e.OpenAccount(ctx, 2)
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("reopen: want ErrAccountExists, got %v", err)
	}
}

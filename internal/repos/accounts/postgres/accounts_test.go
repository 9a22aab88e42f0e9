package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/fastprodman/loyalty/internal/infra/pgtestutil"
	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/repos/accounts"
)

func TestAccounts_CreateAndGet(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	acc, err := repo.Create(ctx, 1, "Bronze")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.UserID != 1 || acc.Balance != 0 || acc.LifetimePoints != 0 || acc.Tier != "Bronze" || acc.Version != 0 {
		t.Fatalf("unexpected fresh account: %+v", acc)
	}

	_, err = repo.Create(ctx, 1, "Bronze")
	if !errors.Is(err, accounts.ErrAccountExists) {
		t.Fatalf("second create: got %v, want %v", err, accounts.ErrAccountExists)
	}

	got, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != acc.UserID || got.Tier != acc.Tier {
		t.Fatalf("get mismatch: got %+v, want %+v", got, acc)
	}

	_, err = repo.Get(ctx, 2)
	if !errors.Is(err, accounts.ErrAccountNotFound) {
		t.Fatalf("get missing: got %v, want %v", err, accounts.ErrAccountNotFound)
	}
}

func TestAccounts_LockAndUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		userID  uint64
		stale   bool
		wantErr error
	}{
		{name: "ok_update", userID: 1},
		{name: "stale_version", userID: 1, stale: true, wantErr: accounts.ErrVersionConflict},
		{name: "missing_account", userID: 2, wantErr: accounts.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			repo := New(db)
			ctx := context.Background()

			_, err := repo.Create(ctx, 1, "Bronze")
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin tx: %v", err)
			}
			defer tx.Rollback()

			acc, err := repo.LockForUpdate(ctx, tx, tt.userID)
			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("lock: got %v, want %v", err, tt.wantErr)
				}
				return
			}

			acc.Balance = 550
			acc.LifetimePoints = 550
			acc.Tier = "Silver"
			if tt.stale {
				acc.Version--
			}

			updated, err := repo.Update(ctx, tx, acc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("update: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("update: %v", err)
			}

			if updated.Version != acc.Version+1 {
				t.Fatalf("version not bumped: got %d, want %d", updated.Version, acc.Version+1)
			}
			if updated.Balance != 550 || updated.LifetimePoints != 550 || updated.Tier != "Silver" {
				t.Fatalf("unexpected updated account: %+v", updated)
			}
		})
	}
}

func TestAccounts_NegativeBalanceRejected(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, 3, "Bronze")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	acc, err := repo.LockForUpdate(ctx, tx, 3)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acc.Balance = -1

	_, err = repo.Update(ctx, tx, acc)
	if !pgutils.HasCode(err, pgutils.CodeCheckViolation) {
		t.Fatalf("want check violation for negative balance, got %v", err)
	}
}

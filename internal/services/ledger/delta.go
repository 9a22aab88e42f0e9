package ledger

import (
	"fmt"
	"math"

	"github.com/fastprodman/loyalty/internal/repos/transactions"
)

// Op is the kind of balance mutation requested from the engine.
type Op string

const (
	OpEarn        Op = "earn"
	OpSpend       Op = "spend"
	OpRedeem      Op = "redeem"
	OpAdminCredit Op = "admin-credit"
	OpAdminDebit  Op = "admin-debit"
)

// Kind maps the op to the ledger entry kind it is recorded under.
func (o Op) Kind() (transactions.Kind, bool) {
	switch o {
	case OpEarn:
		return transactions.KindEarn, true
	case OpSpend:
		return transactions.KindSpend, true
	case OpRedeem:
		return transactions.KindRedeem, true
	case OpAdminCredit, OpAdminDebit:
		return transactions.KindAdminAdjust, true
	default:
		return "", false
	}
}

// Credit reports whether the op adds points.
func (o Op) Credit() bool {
	return o == OpEarn || o == OpAdminCredit
}

// Delta is one requested mutation. Amount is always positive, the direction
// comes from Op.
type Delta struct {
	UserID         uint64
	Op             Op
	Amount         int64
	Description    string
	IdempotencyKey string
}

// Result is the account state after a successful mutation plus the ledger
// entry that recorded it.
type Result struct {
	Balance        int64               `json:"balance"`
	LifetimePoints int64               `json:"lifetimePoints"`
	Tier           string              `json:"tier"`
	Transaction    transactions.Record `json:"transaction"`
}

// MaxUserID is the largest id the accounts key (BIGINT) can hold.
const MaxUserID = math.MaxInt64

// ValidateUserID rejects ids no account can ever have.
func ValidateUserID(userID uint64) error {
	if userID == 0 || userID > MaxUserID {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, userID)
	}

	return nil
}

func (d Delta) validate() error {
	err := ValidateUserID(d.UserID)
	if err != nil {
		return err
	}

	if _, ok := d.Op.Kind(); !ok {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidAmount, d.Op)
	}

	if d.Amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, d.Amount)
	}

	return nil
}

package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("account not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrDescriptionRequired  = errors.New("description required")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrAccountExists        = errors.New("account already exists")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

var domainErrors = []error{
	ErrNotFound,
	ErrInvalidAmount,
	ErrInvalidUserID,
	ErrDescriptionRequired,
	ErrInsufficientBalance,
	ErrDuplicateTransaction,
	ErrAccountExists,
	ErrStoreUnavailable,
}

// IsDomain reports whether err already carries one of the package sentinels.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// StoreError tags a non-domain failure with ErrStoreUnavailable. Domain
// errors and nil pass through untouched.
func StoreError(err error) error {
	if err == nil || IsDomain(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidUserID), errors.Is(err, ErrDescriptionRequired):
		return "invalid"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, ErrAccountExists):
		return "exists"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store_unavailable"
	}
}

// Package auth turns an already-issued bearer token into the caller
// identity the handlers authorize against. It never issues credentials.
package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type Role string

const (
	RoleUser    Role = "user"
	RoleService Role = "service"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleService, RoleAdmin:
		return true
	default:
		return false
	}
}

// Principal is the authenticated caller. UserID is 0 for service callers
// whose subject is not a loyalty user.
type Principal struct {
	Subject string
	UserID  uint64
	Role    Role
}

// Is reports whether the principal holds one of roles.
func (p Principal) Is(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}

	return false
}

// Self reports whether p acts on its own account.
func (p Principal) Self(userID uint64) bool {
	return p.UserID != 0 && p.UserID == userID
}

// SelfOrAdmin is the common rule for account-scoped operations.
func (p Principal) SelfOrAdmin(userID uint64) error {
	if p.Self(userID) || p.Is(RoleAdmin) {
		return nil
	}

	return ErrForbidden
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)

	return p, ok
}

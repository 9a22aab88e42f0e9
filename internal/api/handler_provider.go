package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fastprodman/loyalty/internal/auth"
	"github.com/fastprodman/loyalty/internal/repos/accounts"
	"github.com/fastprodman/loyalty/internal/repos/redemptions"
	"github.com/fastprodman/loyalty/internal/repos/reports"
	"github.com/fastprodman/loyalty/internal/repos/rewards"
	"github.com/fastprodman/loyalty/internal/repos/transactions"
	"github.com/fastprodman/loyalty/internal/services/ledger"
	"github.com/fastprodman/loyalty/internal/services/redemption"
	"github.com/fastprodman/loyalty/internal/services/reporting"
	"github.com/fastprodman/loyalty/internal/tiers"
)

type Ledger interface {
	OpenAccount(ctx context.Context, userID uint64) (accounts.Account, error)
	GetBalance(ctx context.Context, userID uint64) (ledger.BalanceView, error)
	GetHistory(ctx context.Context, userID uint64, limit, offset int) ([]transactions.Record, error)
	Earn(ctx context.Context, userID uint64, amount int64, description, idempotencyKey string) (ledger.Result, error)
	Accrue(ctx context.Context, userID uint64, basePoints int64, description, idempotencyKey string) (ledger.Result, error)
	Spend(ctx context.Context, userID uint64, amount int64, description, idempotencyKey string) (ledger.Result, error)
	AdminAdjust(ctx context.Context, userID uint64, amount int64, description, idempotencyKey string) (ledger.Result, error)
}

type Redeemer interface {
	Redeem(ctx context.Context, req redemption.Request) (redemption.Outcome, error)
	ListRewards(ctx context.Context) ([]rewards.Reward, error)
	History(ctx context.Context, userID uint64, limit, offset int) ([]redemptions.Redemption, error)
}

type Reporter interface {
	TierDistribution(ctx context.Context) ([]reports.TierCount, error)
	Totals(ctx context.Context) (reporting.Totals, error)
}

// HandlerProvider exposes the loyalty services as HTTP handlers.
type HandlerProvider struct {
	ledger  Ledger
	redeem  Redeemer
	reports Reporter
	tiers   *tiers.Table
}

func NewHandler(l Ledger, r Redeemer, rep Reporter, table *tiers.Table) *HandlerProvider {
	return &HandlerProvider{ledger: l, redeem: r, reports: rep, tiers: table}
}

// --- Helpers ---

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		// headers are gone by now, only log
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps service errors onto HTTP statuses. Server-side
// failures are logged; the client only sees the sentinel text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="loyalty"`)
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	sentinels := []struct {
		err    error
		status int
	}{
		{auth.ErrUnauthorized, http.StatusUnauthorized},
		{auth.ErrForbidden, http.StatusForbidden},
		{ledger.ErrNotFound, http.StatusNotFound},
		{ledger.ErrInvalidAmount, http.StatusBadRequest},
		{ledger.ErrInvalidUserID, http.StatusBadRequest},
		{ledger.ErrDescriptionRequired, http.StatusBadRequest},
		{ledger.ErrInsufficientBalance, http.StatusConflict},
		{ledger.ErrDuplicateTransaction, http.StatusConflict},
		{ledger.ErrAccountExists, http.StatusConflict},
		{redemption.ErrRewardUnavailable, http.StatusUnprocessableEntity},
		{ledger.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}

	return http.StatusInternalServerError, "internal error"
}

// parseUserIDFromPath reads `{userId}` from chi routes like:
//
//	GET  /users/{userId}/balance
//	POST /users/{userId}/earn
func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, fmt.Errorf("missing userId")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid userId: %w", err)
	}
	if id == 0 || id > ledger.MaxUserID {
		return 0, fmt.Errorf("invalid userId: out of range")
	}

	return id, nil
}

// parsePaging reads ?limit&offset. Missing values are 0 and get clamped by
// the services.
func parsePaging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit")
		}
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset")
		}
	}

	return limit, offset, nil
}

// decodeJSON limits the body size and disallows unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// principalFor resolves the caller and the path user, and checks that the
// caller may act on that account.
func principalFor(r *http.Request, check func(p auth.Principal, userID uint64) error) (uint64, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return 0, auth.ErrUnauthorized
	}

	userID, err := parseUserIDFromPath(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ledger.ErrInvalidUserID, err)
	}

	if check != nil {
		err = check(p, userID)
		if err != nil {
			return 0, err
		}
	}

	return userID, nil
}

func selfOrAdmin(p auth.Principal, userID uint64) error {
	return p.SelfOrAdmin(userID)
}

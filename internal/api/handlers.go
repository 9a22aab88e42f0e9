package api

import (
	"net/http"
	"strings"

	"github.com/fastprodman/loyalty/internal/services/redemption"
)

type accountResponse struct {
	UserID         uint64 `json:"userId"`
	Balance        int64  `json:"balance"`
	LifetimePoints int64  `json:"lifetimePoints"`
	Tier           string `json:"tier"`
}

type mutationRequest struct {
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type accrueRequest struct {
	BasePoints     int64  `json:"basePoints"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type redeemRequest struct {
	RewardID       uint64 `json:"rewardId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// idempotencyKey prefers the body field and falls back to the
// Idempotency-Key header.
func idempotencyKey(r *http.Request, fromBody string) string {
	if k := strings.TrimSpace(fromBody); k != "" {
		return k
	}

	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

// --- Accounts ---

// OpenAccountHandler handles POST /users/{userId}/account
func (h *HandlerProvider) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, selfOrAdmin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	acc, err := h.ledger.OpenAccount(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{
		UserID:         acc.UserID,
		Balance:        acc.Balance,
		LifetimePoints: acc.LifetimePoints,
		Tier:           acc.Tier,
	})
}

// GetBalanceHandler handles GET /users/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, selfOrAdmin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	view, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetHistoryHandler handles GET /users/{userId}/history?limit&offset
func (h *HandlerProvider) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, selfOrAdmin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	limit, offset, err := parsePaging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.ledger.GetHistory(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "transactions": recs})
}

// GetRedemptionsHandler handles GET /users/{userId}/redemptions?limit&offset
func (h *HandlerProvider) GetRedemptionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, selfOrAdmin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	limit, offset, err := parsePaging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.redeem.History(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "redemptions": list})
}

// --- Mutations ---

// EarnHandler handles POST /users/{userId}/earn (service or admin)
func (h *HandlerProvider) EarnHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, nil)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req mutationRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ledger.Earn(r.Context(), userID, req.Amount, req.Description, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// AccrueHandler handles POST /users/{userId}/accrue (service or admin)
func (h *HandlerProvider) AccrueHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, nil)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req accrueRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ledger.Accrue(r.Context(), userID, req.BasePoints, req.Description, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// SpendHandler handles POST /users/{userId}/spend (self or admin)
func (h *HandlerProvider) SpendHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, selfOrAdmin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req mutationRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ledger.Spend(r.Context(), userID, req.Amount, req.Description, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// RedeemHandler handles POST /users/{userId}/redeem (self or admin)
func (h *HandlerProvider) RedeemHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, selfOrAdmin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req redeemRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.redeem.Redeem(r.Context(), redemption.Request{
		UserID:         userID,
		RewardID:       req.RewardID,
		IdempotencyKey: idempotencyKey(r, req.IdempotencyKey),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// AdminAdjustHandler handles POST /admin/users/{userId}/adjust (admin)
func (h *HandlerProvider) AdminAdjustHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := principalFor(r, nil)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req mutationRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ledger.AdminAdjust(r.Context(), userID, req.Amount, strings.TrimSpace(req.Description), idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// --- Catalog and reports ---

// ListTiersHandler handles GET /tiers
func (h *HandlerProvider) ListTiersHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": h.tiers.Definitions()})
}

// ListRewardsHandler handles GET /rewards
func (h *HandlerProvider) ListRewardsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.redeem.ListRewards(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rewards": list})
}

// TierReportHandler handles GET /reports/tiers (admin)
func (h *HandlerProvider) TierReportHandler(w http.ResponseWriter, r *http.Request) {
	dist, err := h.reports.TierDistribution(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tiers": dist})
}

// TotalsReportHandler handles GET /reports/totals (admin)
func (h *HandlerProvider) TotalsReportHandler(w http.ResponseWriter, r *http.Request) {
	totals, err := h.reports.Totals(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, totals)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fastprodman/loyalty/internal/auth"
	"github.com/fastprodman/loyalty/internal/infra/metrics"
)

// NewRouter registers every endpoint. limiter may be nil.
func NewRouter(h *HandlerProvider, v auth.Verifier, limiter *RateLimiter, m *metrics.Collectors) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(observe(m))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(v, writeDomainError))
		r.Use(tagCaller)
		if limiter != nil {
			r.Use(limiter.Handler)
		}

		r.Get("/tiers", h.ListTiersHandler)
		r.Get("/rewards", h.ListRewardsHandler)

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Post("/account", h.OpenAccountHandler)
			r.Get("/balance", h.GetBalanceHandler)
			r.Get("/history", h.GetHistoryHandler)
			r.Get("/redemptions", h.GetRedemptionsHandler)
			r.Post("/spend", h.SpendHandler)
			r.Post("/redeem", h.RedeemHandler)

			r.With(auth.RequireRole(writeDomainError, auth.RoleService, auth.RoleAdmin)).
				Post("/earn", h.EarnHandler)
			r.With(auth.RequireRole(writeDomainError, auth.RoleService, auth.RoleAdmin)).
				Post("/accrue", h.AccrueHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(writeDomainError, auth.RoleAdmin))

			r.Post("/admin/users/{userId}/adjust", h.AdminAdjustHandler)
			r.Get("/reports/tiers", h.TierReportHandler)
			r.Get("/reports/totals", h.TotalsReportHandler)
		})
	})

	return r
}

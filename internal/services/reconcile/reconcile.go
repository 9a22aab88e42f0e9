// Package reconcile checks the cached account figures against the ledger.
// It only reports drift; it never writes.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/loyalty/internal/infra/metrics"
	"github.com/fastprodman/loyalty/internal/repos/reports"
	pgreports "github.com/fastprodman/loyalty/internal/repos/reports/postgres"
	"github.com/fastprodman/loyalty/internal/tiers"
)

const defaultPageSize = 500

// Drift is one account whose row disagrees with its ledger entries.
type Drift struct {
	UserID         uint64
	Balance        int64
	LedgerBalance  int64
	LifetimePoints int64
	LedgerCredits  int64
	Tier           string
	ExpectedTier   string
}

type Report struct {
	Checked int
	Drifted []Drift
}

type Reconciler struct {
	reports  reports.Reports
	tiers    *tiers.Table
	metrics  *metrics.Collectors
	pageSize int
	now      func() time.Time
}

func New(db *sql.DB, table *tiers.Table, m *metrics.Collectors) *Reconciler {
	return &Reconciler{
		reports:  pgreports.New(db),
		tiers:    table,
		metrics:  m,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
}

// Run walks every account by user id. An account drifts when
//
//   - balance != sum of its ledger deltas,
//   - lifetime points != sum of its credits,
//   - stored tier != tier derived from lifetime points.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	start := r.now()

	var (
		rep   Report
		after uint64
	)

	for {
		page, err := r.reports.LedgerStates(ctx, after, r.pageSize)
		if err != nil {
			r.metrics.ObserveReconcile(0, err, r.now())

			return rep, fmt.Errorf("reconcile after user %d: %w", after, err)
		}

		for _, st := range page {
			rep.Checked++

			d, drifted := r.check(st)
			if drifted {
				rep.Drifted = append(rep.Drifted, d)

				slog.WarnContext(ctx, "ledger drift",
					"user_id", d.UserID,
					"balance", d.Balance,
					"ledger_balance", d.LedgerBalance,
					"lifetime_points", d.LifetimePoints,
					"ledger_credits", d.LedgerCredits,
					"tier", d.Tier,
					"expected_tier", d.ExpectedTier,
				)
			}
		}

		if len(page) < r.pageSize {
			break
		}

		after = page[len(page)-1].UserID
	}

	r.metrics.ObserveReconcile(len(rep.Drifted), nil, r.now())

	slog.InfoContext(ctx, "reconciliation finished",
		"checked", rep.Checked,
		"drifted", len(rep.Drifted),
		"duration", r.now().Sub(start),
	)

	return rep, nil
}

func (r *Reconciler) check(st reports.LedgerState) (Drift, bool) {
	expected := r.tiers.Derive(st.LifetimePoints).Name

	d := Drift{
		UserID:         st.UserID,
		Balance:        st.Balance,
		LedgerBalance:  st.LedgerBalance,
		LifetimePoints: st.LifetimePoints,
		LedgerCredits:  st.LedgerCredits,
		Tier:           st.Tier,
		ExpectedTier:   expected,
	}

	drifted := st.Balance != st.LedgerBalance ||
		st.LifetimePoints != st.LedgerCredits ||
		st.Tier != expected

	return d, drifted
}

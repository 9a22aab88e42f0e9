// Package reporting serves read-only aggregates over accounts and the
// ledger. Nothing here takes row locks.
package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/loyalty/internal/repos/reports"
	pgreports "github.com/fastprodman/loyalty/internal/repos/reports/postgres"
	"github.com/fastprodman/loyalty/internal/services/ledger"
	"github.com/fastprodman/loyalty/internal/tiers"
)

const tierDistributionKey = "reports:tiers"

type Service struct {
	reports reports.Reports
	tiers   *tiers.Table
	cache   Cache
	ttl     time.Duration
}

// New wires the service. cache may be nil, then every call hits the store.
func New(db *sql.DB, table *tiers.Table, cache Cache, ttl time.Duration) *Service {
	return &Service{
		reports: pgreports.New(db),
		tiers:   table,
		cache:   cache,
		ttl:     ttl,
	}
}

// Totals is the points economy overview.
type Totals struct {
	Accounts reports.AccountTotals `json:"accounts"`
	Kinds    []reports.KindTotal   `json:"kinds"`
}

// TierDistribution counts accounts per tier. Every configured tier is
// listed in threshold order, empty ones with 0. Tiers stored on accounts but
// missing from the table are appended after them.
func (s *Service) TierDistribution(ctx context.Context) ([]reports.TierCount, error) {
	if cached, ok := s.cachedDistribution(ctx); ok {
		return cached, nil
	}

	counts, err := s.reports.TierCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("tier distribution: %w", ledger.StoreError(err))
	}

	out := s.zeroFill(counts)

	if s.cache != nil {
		raw, err := json.Marshal(out)
		if err == nil {
			err = s.cache.Set(ctx, tierDistributionKey, raw, s.ttl)
		}
		if err != nil {
			slog.WarnContext(ctx, "cache tier distribution", "error", err)
		}
	}

	return out, nil
}

func (s *Service) Totals(ctx context.Context) (Totals, error) {
	acc, err := s.reports.AccountTotals(ctx)
	if err != nil {
		return Totals{}, fmt.Errorf("totals: %w", ledger.StoreError(err))
	}

	kinds, err := s.reports.KindTotals(ctx)
	if err != nil {
		return Totals{}, fmt.Errorf("totals: %w", ledger.StoreError(err))
	}

	if kinds == nil {
		kinds = []reports.KindTotal{}
	}

	return Totals{Accounts: acc, Kinds: kinds}, nil
}

func (s *Service) cachedDistribution(ctx context.Context) ([]reports.TierCount, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, ok, err := s.cache.Get(ctx, tierDistributionKey)
	if err != nil {
		slog.WarnContext(ctx, "read cached tier distribution", "error", err)

		return nil, false
	}
	if !ok {
		return nil, false
	}

	var out []reports.TierCount

	err = json.Unmarshal(raw, &out)
	if err != nil {
		slog.WarnContext(ctx, "decode cached tier distribution", "error", err)

		return nil, false
	}

	return out, true
}

func (s *Service) zeroFill(counts []reports.TierCount) []reports.TierCount {
	byTier := make(map[string]int64, len(counts))
	for _, c := range counts {
		byTier[c.Tier] = c.Accounts
	}

	names := s.tiers.Names()
	out := make([]reports.TierCount, 0, len(names))

	for _, name := range names {
		out = append(out, reports.TierCount{Tier: name, Accounts: byTier[name]})
		delete(byTier, name)
	}

	// stale tier names, in store order
	for _, c := range counts {
		if _, left := byTier[c.Tier]; left {
			out = append(out, c)
		}
	}

	return out
}

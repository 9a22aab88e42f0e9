// Package tiers holds the reward tier table: an ordered, immutable list of
// tier definitions keyed by lifetime-points threshold.
//
// A Table is built once at process start and shared by handle. It has no
// runtime mutation and every lookup is a total function over validated input.
package tiers

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strings"
)

var (
	ErrEmptyTable        = errors.New("tiers: table is empty")
	ErrMissingFloor      = errors.New("tiers: no tier with threshold 0")
	ErrNegativeThreshold = errors.New("tiers: negative threshold")
	ErrDuplicateName     = errors.New("tiers: duplicate tier name")
	ErrInvalidName       = errors.New("tiers: empty tier name")
	ErrInvalidMultiplier = errors.New("tiers: multiplier must be > 0")
)

const bpsScale = 10_000

// Definition describes a single reward tier.
type Definition struct {
	Name        string  `json:"name" yaml:"name"`
	MinLifetime int64   `json:"minLifetime" yaml:"min_lifetime"`
	Multiplier  float64 `json:"multiplier" yaml:"multiplier"`
	Color       string  `json:"color,omitempty" yaml:"color"`

	bps int64
}

// Apply scales base points by the tier multiplier, rounding down.
// ok is false when the result does not fit into int64.
func (d Definition) Apply(base int64) (int64, bool) {
	if base <= 0 {
		return 0, base == 0
	}

	hi, lo := bits.Mul64(uint64(base), uint64(d.bps))
	if hi >= bpsScale {
		return 0, false
	}

	q, _ := bits.Div64(hi, lo, bpsScale)
	if q > math.MaxInt64 {
		return 0, false
	}

	return int64(q), true
}

// Table is the validated, threshold-ordered tier list.
type Table struct {
	defs   []Definition
	byName map[string]int
}

// New validates defs and builds a Table.
//
// Definitions are ordered by threshold. When two definitions share a
// threshold, the one declared later wins in Derive.
func New(defs []Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyTable
	}

	sorted := make([]Definition, len(defs))
	copy(sorted, defs)

	names := make(map[string]struct{}, len(sorted))
	hasFloor := false

	for i := range sorted {
		d := &sorted[i]

		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrInvalidName, i)
		}

		key := strings.ToLower(d.Name)
		if _, dup := names[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
		names[key] = struct{}{}

		if d.MinLifetime < 0 {
			return nil, fmt.Errorf("%w: %q has %d", ErrNegativeThreshold, d.Name, d.MinLifetime)
		}
		if d.MinLifetime == 0 {
			hasFloor = true
		}

		if !(d.Multiplier > 0) || math.IsInf(d.Multiplier, 0) {
			return nil, fmt.Errorf("%w: %q has %v", ErrInvalidMultiplier, d.Name, d.Multiplier)
		}
		d.bps = int64(math.Round(d.Multiplier * bpsScale))
		if d.bps <= 0 {
			return nil, fmt.Errorf("%w: %q has %v", ErrInvalidMultiplier, d.Name, d.Multiplier)
		}
	}

	if !hasFloor {
		return nil, ErrMissingFloor
	}

	// stable: equal thresholds keep declaration order
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinLifetime < sorted[j].MinLifetime
	})

	byName := make(map[string]int, len(sorted))
	for i, d := range sorted {
		byName[strings.ToLower(d.Name)] = i
	}

	return &Table{defs: sorted, byName: byName}, nil
}

// MustNew is New that panics on invalid input. Meant for package-level tables.
func MustNew(defs []Definition) *Table {
	t, err := New(defs)
	if err != nil {
		panic(err)
	}

	return t
}

// Derive returns the tier with the highest threshold <= lifetime.
func (t *Table) Derive(lifetime int64) Definition {
	// first index whose threshold is strictly greater than lifetime
	i := sort.Search(len(t.defs), func(i int) bool {
		return t.defs[i].MinLifetime > lifetime
	})
	if i == 0 {
		return t.defs[0]
	}

	return t.defs[i-1]
}

// Next returns the tier that follows the one lifetime currently maps to, and
// the number of points still missing. ok is false at the top tier.
func (t *Table) Next(lifetime int64) (next Definition, remaining int64, ok bool) {
	i := sort.Search(len(t.defs), func(i int) bool {
		return t.defs[i].MinLifetime > lifetime
	})
	if i == len(t.defs) {
		return Definition{}, 0, false
	}

	next = t.defs[i]

	return next, next.MinLifetime - lifetime, true
}

// Lookup finds a tier by name (case-insensitive).
func (t *Table) Lookup(name string) (Definition, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Definition{}, false
	}

	return t.defs[i], true
}

// Floor returns the lowest tier.
func (t *Table) Floor() Definition {
	return t.defs[0]
}

// Definitions returns the tiers in threshold order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	copy(out, t.defs)

	return out
}

// Names returns tier names in threshold order.
func (t *Table) Names() []string {
	out := make([]string, len(t.defs))
	for i, d := range t.defs {
		out[i] = d.Name
	}

	return out
}

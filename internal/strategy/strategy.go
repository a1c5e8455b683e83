// Package strategy holds the market-scanning strategies. Each strategy is a
// pure classifier: given a market snapshot it either proposes an opportunity
// or declines, with a reason. The engine depends only on the Strategy
// interface, never on concrete strategy types.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// Strategy classifies market snapshots into trade proposals.
type Strategy interface {
	// Name is the registry key, stored on every trade the strategy produces.
	Name() string
	Description() string

	// Evaluate inspects one market snapshot. When the market fits, it
	// returns the proposed opportunity and true; otherwise nil, false, and
	// a short reason for the decline.
	Evaluate(market types.Market) (opp *types.Opportunity, ok bool, reason string)
}

// Config carries the knobs shared by all strategies.
type Config struct {
	Enabled            bool
	PositionSize       float64
	MinVolume          float64
	ExcludedCategories []string
}

// excluded reports whether the market's category is on the exclusion list.
func (c Config) excluded(market types.Market) bool {
	if market.Category == "" {
		return false
	}
	for _, cat := range c.ExcludedCategories {
		if strings.EqualFold(cat, market.Category) {
			return true
		}
	}
	return false
}

// matchKeywords returns the keywords present in the question, lowercased
// substring match.
func matchKeywords(question string, keywords []string) []string {
	lower := strings.ToLower(question)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// Registry maps strategy names to implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates a registry holding the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return s, nil
}

// All returns every registered strategy, sorted by name.
func (r *Registry) All() []Strategy {
	out := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScanMarkets runs every registered strategy over the snapshot set and
// collects all proposals.
func (r *Registry) ScanMarkets(markets []types.Market) []*types.Opportunity {
	var opportunities []*types.Opportunity
	for _, s := range r.All() {
		for _, m := range markets {
			if opp, ok, _ := s.Evaluate(m); ok {
				opportunities = append(opportunities, opp)
			}
		}
	}
	return opportunities
}

// Default returns the registry with the built-in strategies under default
// configuration.
func Default() *Registry {
	return NewRegistry(
		NewNothingEverHappens(NothingEverHappensConfig{}),
		NewYieldFarming(YieldFarmingConfig{}),
	)
}

package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/acastellana/prediction-agent/pkg/types"
)

var defaultAbsurdityKeywords = []string{
	"alien", "jesus", "god", "rapture", "apocalypse", "end of world",
	"zombie", "vampire", "time travel", "faster than light",
	"perpetual motion", "free energy", "flat earth",
	"moon landing fake", "simulation", "multiverse portal",
}

// YieldFarmingConfig configures the yield-farming strategy. Zero values
// fall back to defaults.
type YieldFarmingConfig struct {
	Config
	MinNoPrice        float64
	AbsurdityKeywords []string
}

func (c YieldFarmingConfig) withDefaults() YieldFarmingConfig {
	if c.MinNoPrice <= 0 {
		c.MinNoPrice = 0.95
	}
	if len(c.AbsurdityKeywords) == 0 {
		c.AbsurdityKeywords = defaultAbsurdityKeywords
	}
	if c.PositionSize <= 0 {
		c.PositionSize = 100
	}
	return c
}

// YieldFarming bets NO on absurd predictions. A market asking whether the
// rapture arrives this year pays a small, near-certain return on the NO
// side, comparable to yield.
type YieldFarming struct {
	cfg YieldFarmingConfig
}

// NewYieldFarming creates the strategy, applying config defaults.
func NewYieldFarming(cfg YieldFarmingConfig) *YieldFarming {
	return &YieldFarming{cfg: cfg.withDefaults()}
}

func (s *YieldFarming) Name() string { return "yield_farming" }

func (s *YieldFarming) Description() string {
	return "Bet NO on absurd predictions for steady, yield-like returns"
}

// Evaluate proposes a NO position when the question is absurd and NO is
// already priced near certainty.
func (s *YieldFarming) Evaluate(market types.Market) (*types.Opportunity, bool, string) {
	if s.cfg.excluded(market) {
		return nil, false, fmt.Sprintf("category %s is excluded", market.Category)
	}
	if market.NoPrice == nil {
		return nil, false, "missing NO price"
	}
	if *market.NoPrice < s.cfg.MinNoPrice {
		return nil, false, fmt.Sprintf("NO price %.2f below %.2f", *market.NoPrice, s.cfg.MinNoPrice)
	}

	keywords := matchKeywords(market.Question, s.cfg.AbsurdityKeywords)
	if len(keywords) == 0 {
		return nil, false, "no absurdity keywords found"
	}

	// $100 on NO at 0.97 buys 103.09 shares; if NO resolves, the 3.09%
	// surplus is the yield.
	noPrice := *market.NoPrice
	impliedYield := (1/noPrice - 1) * 100

	return &types.Opportunity{
		Market:            market,
		Strategy:          s.Name(),
		SignalStrength:    math.Min(1, noPrice),
		RecommendedSide:   types.SideNo,
		RecommendedAmount: s.cfg.PositionSize,
		ExpectedValue:     impliedYield / 100,
		Reasoning: fmt.Sprintf(
			"Yield: absurd prediction: %s. NO at %.1f%% = %.1f%% yield if it resolves NO.",
			strings.Join(keywords, ", "), noPrice*100, impliedYield),
	}, true, ""
}

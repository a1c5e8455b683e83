package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// nehFailureRate is the historical share of confident, sensational YES
// predictions that fail to materialize.
const nehFailureRate = 0.78

var defaultSensationalKeywords = []string{
	"war", "collapse", "crash", "dies", "assassinated", "impeached",
	"resign", "arrested", "indicted", "nuclear", "invasion", "default",
	"bankruptcy", "scandal", "emergency", "crisis", "explosive",
}

// NothingEverHappensConfig configures the nothing-ever-happens strategy.
// Zero values fall back to defaults.
type NothingEverHappensConfig struct {
	Config
	MaxYesPrice         float64
	SensationalKeywords []string
}

func (c NothingEverHappensConfig) withDefaults() NothingEverHappensConfig {
	if c.MaxYesPrice <= 0 {
		c.MaxYesPrice = 0.15
	}
	if len(c.SensationalKeywords) == 0 {
		c.SensationalKeywords = defaultSensationalKeywords
	}
	if c.PositionSize <= 0 {
		c.PositionSize = 50
	}
	if c.MinVolume <= 0 {
		c.MinVolume = 1000
	}
	return c
}

// NothingEverHappens bets NO on dramatic predictions. Sensationally worded
// markets with a cheap YES price rarely resolve YES; the drama is priced,
// the outcome is not.
type NothingEverHappens struct {
	cfg NothingEverHappensConfig
}

// NewNothingEverHappens creates the strategy, applying config defaults.
func NewNothingEverHappens(cfg NothingEverHappensConfig) *NothingEverHappens {
	return &NothingEverHappens{cfg: cfg.withDefaults()}
}

func (s *NothingEverHappens) Name() string { return "nothing_ever_happens" }

func (s *NothingEverHappens) Description() string {
	return "Bet NO on dramatic/sensational predictions that rarely materialize"
}

// Evaluate proposes a NO position when the market is sensationally worded
// and YES is cheap enough.
func (s *NothingEverHappens) Evaluate(market types.Market) (*types.Opportunity, bool, string) {
	if s.cfg.excluded(market) {
		return nil, false, fmt.Sprintf("category %s is excluded", market.Category)
	}
	if market.Volume != nil && *market.Volume < s.cfg.MinVolume {
		return nil, false, fmt.Sprintf("volume %.0f below minimum %.0f", *market.Volume, s.cfg.MinVolume)
	}
	if market.YesPrice == nil || market.NoPrice == nil {
		return nil, false, "missing price data"
	}
	if *market.YesPrice > s.cfg.MaxYesPrice {
		return nil, false, fmt.Sprintf("YES price %.2f above max %.2f", *market.YesPrice, s.cfg.MaxYesPrice)
	}

	keywords := matchKeywords(market.Question, s.cfg.SensationalKeywords)
	if len(keywords) == 0 {
		return nil, false, "no sensational keywords found"
	}

	// EV of the NO side under the historical failure rate as our probability.
	noPrice := *market.NoPrice
	ev := nehFailureRate*(1-noPrice) - (1-nehFailureRate)*noPrice
	signal := math.Max(0, math.Min(1, ev*5))

	return &types.Opportunity{
		Market:            market,
		Strategy:          s.Name(),
		SignalStrength:    signal,
		RecommendedSide:   types.SideNo,
		RecommendedAmount: s.cfg.PositionSize,
		ExpectedValue:     ev,
		Reasoning: fmt.Sprintf(
			"NEH: sensational keywords: %s. YES at %.0f%% implies unlikely event. Historical: 78%% fail.",
			strings.Join(keywords, ", "), *market.YesPrice*100),
	}, true, ""
}

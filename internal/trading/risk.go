// Package trading contains the risk-checked trade execution core: exposure
// aggregation, risk limits, paper/live executors, and the engine that runs
// them as one atomic sequence.
package trading

import (
	"fmt"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// RiskConfig holds the hard trading limits.
type RiskConfig struct {
	MaxPositionSize       float64 // max $ per trade
	MaxTotalExposure      float64 // max total $ in open trades
	MaxDailyVolume        float64 // max $ traded per local day; 0 means 2x exposure cap
	MaxPositionsPerMarket int     // max open positions per (platform, market); 0 means 1
}

func (c RiskConfig) withDefaults() RiskConfig {
	if c.MaxDailyVolume <= 0 {
		c.MaxDailyVolume = c.MaxTotalExposure * 2
	}
	if c.MaxPositionsPerMarket <= 0 {
		c.MaxPositionsPerMarket = 1
	}
	return c
}

// RiskCheckResult is the outcome of a risk limit check. On denial, Limit
// carries the machine-readable tag and Reason the human-readable cause.
type RiskCheckResult struct {
	Allowed bool               `json:"allowed"`
	Reason  string             `json:"reason"`
	Limit   string             `json:"limit,omitempty"`
	Details map[string]float64 `json:"details,omitempty"`
}

// RiskManager applies the configured limits to proposed trades. It is a
/// pure decision function: all state is passed in, nothing is read or
// written here.
type RiskManager struct {
	cfg RiskConfig
}

// NewRiskManager creates a risk manager, applying limit defaults.
func NewRiskManager(cfg RiskConfig) *RiskManager {
	return &RiskManager{cfg: cfg.withDefaults()}
}

// Config returns the effective limits after defaulting.
func (r *RiskManager) Config() RiskConfig {
	return r.cfg
}

// CheckLimits runs the four limit checks in fixed order and stops at the
// first failure. The order is part of the contract: a trade that breaks
// several limits is always reported against the earliest one.
func (r *RiskManager) CheckLimits(opp *types.Opportunity, exposure *ExposureReport, positions []Position) RiskCheckResult {
	amount := opp.RecommendedAmount

	// Check 1: per-trade position size.
	if amount > r.cfg.MaxPositionSize {
		return RiskCheckResult{
			Allowed: false,
			Limit:   types.LimitMaxPositionSize,
			Reason: fmt.Sprintf("trade amount $%.2f exceeds max position size $%.2f",
				amount, r.cfg.MaxPositionSize),
			Details: map[string]float64{
				"requested": amount,
				"max":       r.cfg.MaxPositionSize,
			},
		}
	}

	// Check 2: total exposure.
	newTotal := exposure.TotalExposure + amount
	if newTotal > r.cfg.MaxTotalExposure {
		return RiskCheckResult{
			Allowed: false,
			Limit:   types.LimitMaxTotalExposure,
			Reason: fmt.Sprintf("trade would exceed max total exposure: current $%.2f, after $%.2f, max $%.2f",
				exposure.TotalExposure, newTotal, r.cfg.MaxTotalExposure),
			Details: map[string]float64{
				"current": exposure.TotalExposure,
				"after":   newTotal,
				"max":     r.cfg.MaxTotalExposure,
			},
		}
	}

	// Check 3: daily volume.
	newDaily := exposure.DailyTraded + amount
	if newDaily > r.cfg.MaxDailyVolume {
		return RiskCheckResult{
			Allowed: false,
			Limit:   types.LimitDailyVolume,
			Reason: fmt.Sprintf("trade would exceed daily limit: today $%.2f, after $%.2f, limit $%.2f",
				exposure.DailyTraded, newDaily, r.cfg.MaxDailyVolume),
			Details: map[string]float64{
				"today": exposure.DailyTraded,
				"after": newDaily,
				"max":   r.cfg.MaxDailyVolume,
			},
		}
	}

	// Check 4: open positions in the same market.
	inMarket := 0
	for _, p := range positions {
		if p.Platform == opp.Market.Platform && p.MarketID == opp.Market.MarketID {
			inMarket++
		}
	}
	if inMarket >= r.cfg.MaxPositionsPerMarket {
		return RiskCheckResult{
			Allowed: false,
			Limit:   types.LimitPositionsPerMarket,
			Reason: fmt.Sprintf("already have %d position(s) in this market (max %d)",
				inMarket, r.cfg.MaxPositionsPerMarket),
			Details: map[string]float64{
				"current": float64(inMarket),
				"max":     float64(r.cfg.MaxPositionsPerMarket),
			},
		}
	}

	// Details on success echo the would-be totals for logging only; callers
	// must not re-validate against them.
	return RiskCheckResult{
		Allowed: true,
		Reason:  "all risk checks passed",
		Details: map[string]float64{
			"trade_amount":       amount,
			"new_total_exposure": newTotal,
			"new_daily_volume":   newDaily,
		},
	}
}

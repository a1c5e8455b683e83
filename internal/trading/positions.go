package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// Position is a read-only projection of one open trade. It has no storage
// of its own; it is recomputed from the ledger on every read.
type Position struct {
	TradeID        string     `json:"trade_id"`
	Platform       string     `json:"platform"`
	MarketID       string     `json:"market_id"`
	MarketQuestion string     `json:"market_question"`
	Side           types.Side `json:"side"`
	EntryPrice     float64    `json:"entry_price"`
	Amount         float64    `json:"amount"`
	Shares         float64    `json:"shares"`
	CurrentValue   float64    `json:"current_value"`
	UnrealizedPnL  float64    `json:"unrealized_pnl"`
	Strategy       string     `json:"strategy"`
	OpenedAt       time.Time  `json:"opened_at"`
}

// ExposureReport is an aggregate snapshot over the ledger, recomputed on
// demand and never persisted.
type ExposureReport struct {
	TotalExposure    float64            `json:"total_exposure"`
	AvailableCapital float64            `json:"available_capital"`
	PositionCount    int                `json:"position_count"`
	ByPlatform       map[string]float64 `json:"by_platform"`
	ByStrategy       map[string]float64 `json:"by_strategy"`
	DailyTraded      float64            `json:"daily_traded"`
	DailyLimit       float64            `json:"daily_limit"`
	DailyRemaining   float64            `json:"daily_remaining"`
}

// PositionManager derives positions and exposure from the trade ledger.
/// No caching: correctness favors recomputation over staleness.
type PositionManager struct {
	store  ledger.Store
	limits RiskConfig
	clock  clock.Clock
}

// NewPositionManager creates a position manager over the given ledger.
func NewPositionManager(store ledger.Store, limits RiskConfig, clk clock.Clock) *PositionManager {
	return &PositionManager{
		store:  store,
		limits: limits.withDefaults(),
		clock:  clk,
	}
}

// GetPositions projects every open trade to a Position. While unresolved,
// mark-to-market value equals the entry amount and unrealized PnL is zero:
// there is no live repricing in paper trading.
func (pm *PositionManager) GetPositions(ctx context.Context) ([]Position, error) {
	trades, err := pm.store.ListTrades(ctx, ledger.Filter{Status: types.StatusOpen})
	if err != nil {
		return nil, fmt.Errorf("list open trades: %w", err)
	}

	positions := make([]Position, 0, len(trades))
	for _, t := range trades {
		positions = append(positions, Position{
			TradeID:        t.ID,
			Platform:       t.Platform,
			MarketID:       t.MarketID,
			MarketQuestion: t.MarketQuestion,
			Side:           t.Side,
			EntryPrice:     t.EntryPrice,
			Amount:         t.Amount,
			Shares:         t.Shares,
			CurrentValue:   t.Amount,
			UnrealizedPnL:  0,
			Strategy:       t.Strategy,
			OpenedAt:       t.CreatedAt,
		})
	}

	return positions, nil
}

// GetExposure computes the full exposure report: totals and groupings over
// open positions, plus today's traded volume over trades of any status
// created since local midnight.
func (pm *PositionManager) GetExposure(ctx context.Context) (*ExposureReport, error) {
	positions, err := pm.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	var total float64
	byPlatform := make(map[string]float64)
	byStrategy := make(map[string]float64)

	for _, p := range positions {
		total += p.Amount
		byPlatform[p.Platform] += p.Amount
		byStrategy[p.Strategy] += p.Amount
	}

	now := pm.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	todayTrades, err := pm.store.ListTrades(ctx, ledger.Filter{CreatedAfter: &dayStart})
	if err != nil {
		return nil, fmt.Errorf("list today's trades: %w", err)
	}

	var dailyTraded float64
	for _, t := range todayTrades {
		dailyTraded += t.Amount
	}

	dailyLimit := pm.limits.MaxDailyVolume

	return &ExposureReport{
		TotalExposure:    total,
		AvailableCapital: max(0, pm.limits.MaxTotalExposure-total),
		PositionCount:    len(positions),
		ByPlatform:       byPlatform,
		ByStrategy:       byStrategy,
		DailyTraded:      dailyTraded,
		DailyLimit:       dailyLimit,
		DailyRemaining:   max(0, dailyLimit-dailyTraded),
	}, nil
}

// Package testutil provides shared fixtures for tests.
package testutil

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// BaseTime is a fixed reference instant used by tests that pin the clock.
var BaseTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// TradeOption mutates a fixture trade.
type TradeOption func(*types.Trade)

// NewTrade builds an open trade with sane defaults for tests.
func NewTrade(opts ...TradeOption) *types.Trade {
	amount := 10.0
	entry := 0.50
	t := &types.Trade{
		ID:             uuid.New().String(),
		CreatedAt:      BaseTime,
		UpdatedAt:      BaseTime,
		Platform:       "polymarket",
		MarketID:       "market-1",
		MarketQuestion: "Will the test pass?",
		MarketCategory: "other",
		Side:           types.SideYes,
		EntryPrice:     entry,
		Amount:         amount,
		Shares:         amount / entry,
		Strategy:       "test_strategy",
		Status:         types.StatusOpen,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithAmount sets amount and recomputes shares from the entry price.
func WithAmount(amount float64) TradeOption {
	return func(t *types.Trade) {
		t.Amount = amount
		t.Shares = amount / t.EntryPrice
	}
}

// WithEntryPrice sets the entry price and recomputes shares.
func WithEntryPrice(price float64) TradeOption {
	return func(t *types.Trade) {
		t.EntryPrice = price
		t.Shares = t.Amount / price
	}
}

// WithSide sets the trade side.
func WithSide(side types.Side) TradeOption {
	return func(t *types.Trade) { t.Side = side }
}

// WithPlatform sets the platform.
func WithPlatform(platform string) TradeOption {
	return func(t *types.Trade) { t.Platform = platform }
}

// WithMarket sets the market identifier.
func WithMarket(marketID string) TradeOption {
	return func(t *types.Trade) { t.MarketID = marketID }
}

// WithStrategy sets the strategy name.
func WithStrategy(strategy string) TradeOption {
	return func(t *types.Trade) { t.Strategy = strategy }
}

// WithCategory sets the market category.
func WithCategory(category string) TradeOption {
	return func(t *types.Trade) { t.MarketCategory = category }
}

// WithCreatedAt sets the creation timestamp.
func WithCreatedAt(at time.Time) TradeOption {
	return func(t *types.Trade) {
		t.CreatedAt = at
		t.UpdatedAt = at
	}
}

// WithEndDate sets the market end date.
func WithEndDate(at time.Time) TradeOption {
	return func(t *types.Trade) { t.MarketEndDate = &at }
}

// Resolved marks the trade resolved with the given outcome and closing
// price, deriving PnL and CLV the way the resolver does.
func Resolved(won bool, closingPrice float64, at time.Time) TradeOption {
	return func(t *types.Trade) {
		if won {
			t.Status = types.StatusResolvedWin
		} else {
			t.Status = types.StatusResolvedLoss
		}
		t.ResolutionDate = &at
		if won {
			t.ResolutionOutcome = t.Side
		} else if t.Side == types.SideYes {
			t.ResolutionOutcome = types.SideNo
		} else {
			t.ResolutionOutcome = types.SideYes
		}
		cp := closingPrice
		t.ClosingPrice = &cp

		var pnl float64
		if won {
			pnl = t.Shares * (1 - t.EntryPrice)
		} else {
			pnl = -t.Amount
		}
		t.PnL = &pnl
		roi := 0.0
		if t.Amount > 0 {
			roi = pnl / t.Amount * 100
		}
		t.ROI = &roi

		var clv float64
		if t.Side == types.SideYes {
			clv = (closingPrice - t.EntryPrice) / t.EntryPrice * 100
		} else {
			implied := 1 - t.EntryPrice
			clv = (implied - closingPrice) / implied * 100
		}
		clv = math.Round(clv*100) / 100
		t.CLV = &clv
		beat := clv > 0
		t.BeatClosingLine = &beat
	}
}

// WithPnL overrides the realized PnL on a resolved trade.
func WithPnL(pnl float64) TradeOption {
	return func(t *types.Trade) { t.PnL = &pnl }
}

// WithCLV overrides the CLV on a resolved trade.
func WithCLV(clv float64) TradeOption {
	return func(t *types.Trade) {
		t.CLV = &clv
		beat := clv > 0
		t.BeatClosingLine = &beat
	}
}

// Market builds a market snapshot with both prices set.
func Market(yesPrice, noPrice float64) types.Market {
	volume := 50000.0
	end := BaseTime.Add(30 * 24 * time.Hour)
	return types.Market{
		Platform: "polymarket",
		MarketID: "market-1",
		Question: "Will the test pass?",
		Category: "other",
		EndDate:  &end,
		YesPrice: &yesPrice,
		NoPrice:  &noPrice,
		Volume:   &volume,
	}
}

// Opportunity builds a strategy proposal around the given market.
func Opportunity(m types.Market, side types.Side, amount float64) types.Opportunity {
	return types.Opportunity{
		Market:            m,
		Strategy:          "test_strategy",
		SignalStrength:    0.8,
		RecommendedSide:   side,
		RecommendedAmount: amount,
		ExpectedValue:     0.05,
		Reasoning:         "fixture opportunity",
	}
}

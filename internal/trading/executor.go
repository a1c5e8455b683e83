package trading

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// Executor records an accepted opportunity as a new trade. Implementations
// never run risk checks; that is the engine's job.
type Executor interface {
	Execute(ctx context.Context, opp *types.Opportunity) *types.TradeResult
}

// PaperExecutor simulates execution by writing the trade to the ledger at
// the market's snapshot price, with no real order routing.
type PaperExecutor struct {
	store  ledger.Store
	audit  auditlog.Sink
	clock  clock.Clock
	logger *zap.Logger
}

// NewPaperExecutor creates a simulated executor.
func NewPaperExecutor(store ledger.Store, audit auditlog.Sink, clk clock.Clock, logger *zap.Logger) *PaperExecutor {
	return &PaperExecutor{
		store:  store,
		audit:  audit,
		clock:  clk,
		logger: logger,
	}
}

// entryContext is the opaque blob stored with each trade, capturing the
// signal that produced it and the market snapshot at entry.
type entryContext struct {
	SignalStrength float64  `json:"signal_strength"`
	ExpectedValue  float64  `json:"expected_value"`
	Reasoning      string   `json:"reasoning"`
	MarketYesPrice *float64 `json:"market_yes_price,omitempty"`
	MarketNoPrice  *float64 `json:"market_no_price,omitempty"`
	MarketVolume   *float64 `json:"market_volume,omitempty"`
	ExecutionMode  string   `json:"execution_mode"`
}

// Execute writes a new open trade for the opportunity. Fails with an
// invalid-price result when the recommended side has no usable snapshot
// price; nothing is written in that case.
func (e *PaperExecutor) Execute(ctx context.Context, opp *types.Opportunity) *types.TradeResult {
	price := opp.Market.PriceForSide(opp.RecommendedSide)
	if price == nil || *price <= 0 {
		err := &types.InvalidPriceError{Side: opp.RecommendedSide, Price: price}
		return &types.TradeResult{
			Success:   false,
			Err:       err,
			Error:     err.Error(),
			Simulated: true,
		}
	}

	now := e.clock.Now()
	entryPrice := *price
	shares := opp.RecommendedAmount / entryPrice

	ctxBlob, err := json.Marshal(entryContext{
		SignalStrength: opp.SignalStrength,
		ExpectedValue:  opp.ExpectedValue,
		Reasoning:      opp.Reasoning,
		MarketYesPrice: opp.Market.YesPrice,
		MarketNoPrice:  opp.Market.NoPrice,
		MarketVolume:   opp.Market.Volume,
		ExecutionMode:  "paper",
	})
	if err != nil {
		return &types.TradeResult{
			Success:   false,
			Err:       fmt.Errorf("marshal entry context: %w", err),
			Error:     err.Error(),
			Simulated: true,
		}
	}

	trade := &types.Trade{
		ID:             uuid.New().String(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Platform:       opp.Market.Platform,
		MarketID:       opp.Market.MarketID,
		MarketQuestion: opp.Market.Question,
		MarketCategory: opp.Market.Category,
		MarketEndDate:  opp.Market.EndDate,
		Side:           opp.RecommendedSide,
		EntryPrice:     entryPrice,
		Amount:         opp.RecommendedAmount,
		Shares:         shares,
		Strategy:       opp.Strategy,
		EntryContext:   ctxBlob,
		Status:         types.StatusOpen,
	}

	err = e.store.CreateTrade(ctx, trade)
	if err != nil {
		return &types.TradeResult{
			Success:   false,
			Err:       fmt.Errorf("record trade: %w", err),
			Error:     err.Error(),
			Simulated: true,
		}
	}

	// Audit after the ledger write commits; a failed append must not undo
	// the trade.
	auditErr := e.audit.Append(auditlog.Event{
		Timestamp: now,
		Action:    auditlog.ActionPaperTradeExecuted,
		TradeID:   trade.ID,
		Data: map[string]interface{}{
			"strategy":    opp.Strategy,
			"market_id":   opp.Market.MarketID,
			"side":        string(opp.RecommendedSide),
			"amount":      opp.RecommendedAmount,
			"entry_price": entryPrice,
			"shares":      shares,
			"reasoning":   opp.Reasoning,
		},
	})
	if auditErr != nil {
		e.logger.Warn("audit-append-failed",
			zap.String("trade-id", trade.ID),
			zap.Error(auditErr))
	}

	e.logger.Info("paper-trade-executed",
		zap.String("trade-id", trade.ID),
		zap.String("strategy", opp.Strategy),
		zap.String("market-id", opp.Market.MarketID),
		zap.String("side", string(opp.RecommendedSide)),
		zap.Float64("amount", opp.RecommendedAmount),
		zap.Float64("entry-price", entryPrice),
		zap.Float64("shares", shares))

	TradesExecutedTotal.WithLabelValues("paper", string(opp.RecommendedSide)).Inc()

	return &types.TradeResult{
		Success:   true,
		Trade:     trade,
		Simulated: true,
	}
}

// LiveExecutor is the real-money execution path. It fails closed until
// platform order routing exists.
type LiveExecutor struct {
	logger *zap.Logger
}

// NewLiveExecutor creates the fail-closed live executor.
func NewLiveExecutor(logger *zap.Logger) *LiveExecutor {
	return &LiveExecutor{logger: logger}
}

// Execute always reports not-implemented. This is deliberate: the contract
// is in place so the engine is already polymorphic over execution mode, but
// no order ever leaves the process.
func (e *LiveExecutor) Execute(ctx context.Context, opp *types.Opportunity) *types.TradeResult {
	e.logger.Error("live-execution-requested",
		zap.String("market-id", opp.Market.MarketID),
		zap.String("strategy", opp.Strategy))

	return &types.TradeResult{
		Success:   false,
		Err:       types.ErrNotImplemented,
		Error:     types.ErrNotImplemented.Error(),
		Simulated: false,
	}
}

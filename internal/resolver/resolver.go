// Package resolver sweeps open trades against platform state and settles
// the ones whose markets have resolved. Each settlement derives the trade's
// outcome, PnL, ROI, CLV, and lessons once, then applies them to the ledger
// in a single atomic update.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/analysis"
	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/marketdata"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// SweepResult summarizes one resolution sweep.
type SweepResult struct {
	Checked  int     `json:"checked"`
	Resolved int     `json:"resolved"`
	Errors   int     `json:"errors"`
	TotalPnL float64 `json:"total_pnl"`
	DryRun   bool    `json:"dry_run"`
}

// Resolver settles open trades whose markets have resolved.
type Resolver struct {
	store    ledger.Store
	provider marketdata.Provider
	audit    auditlog.Sink
	clock    clock.Clock
	logger   *zap.Logger
}

// New creates a resolver.
func New(store ledger.Store, provider marketdata.Provider, audit auditlog.Sink, clk clock.Clock, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:    store,
		provider: provider,
		audit:    audit,
		clock:    clk,
		logger:   logger,
	}
}

// Sweep checks every open trade once. With dryRun set, settlements are
// computed and logged but nothing is written.
func (r *Resolver) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	start := time.Now()
	defer func() {
		SweepDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	open, err := r.store.ListTrades(ctx, ledger.Filter{Status: types.StatusOpen})
	if err != nil {
		return nil, fmt.Errorf("list open trades: %w", err)
	}

	result := &SweepResult{DryRun: dryRun}
	for _, trade := range open {
		if trade.Platform != marketdata.Platform {
			continue
		}
		result.Checked++

		settled, err := r.checkTrade(ctx, trade, dryRun)
		if err != nil {
			result.Errors++
			SweepErrorsTotal.Inc()
			r.logger.Warn("resolution-check-failed",
				zap.String("trade-id", trade.ID),
				zap.String("market-id", trade.MarketID),
				zap.Error(err))
			continue
		}
		if settled != nil {
			result.Resolved++
			if settled.PnL != nil {
				result.TotalPnL += *settled.PnL
			}
		}
	}

	r.logger.Info("resolution-sweep-complete",
		zap.Int("checked", result.Checked),
		zap.Int("resolved", result.Resolved),
		zap.Int("errors", result.Errors),
		zap.Float64("total-pnl", result.TotalPnL),
		zap.Bool("dry-run", dryRun))

	return result, nil
}

// checkTrade settles one trade if its market has resolved. Returns the
// settled trade, or nil when the market is still open.
func (r *Resolver) checkTrade(ctx context.Context, trade *types.Trade, dryRun bool) (*types.Trade, error) {
	market, err := r.provider.Market(ctx, trade.MarketID)
	if err != nil {
		if errors.Is(err, marketdata.ErrMarketNotFound) {
			// Vanished markets stay open for manual review.
			r.logger.Warn("market-vanished",
				zap.String("trade-id", trade.ID),
				zap.String("market-id", trade.MarketID))
			return nil, nil
		}
		return nil, err
	}

	if !market.Resolved || market.ResolutionOutcome == "" {
		return nil, nil
	}

	resolution := r.deriveResolution(trade, market)

	if dryRun {
		r.logger.Info("would-resolve-trade",
			zap.String("trade-id", trade.ID),
			zap.String("status", string(resolution.Status)),
			zap.Float64("pnl", resolution.PnL))
		return nil, nil
	}

	settled, err := r.store.ResolveTrade(ctx, trade.ID, resolution)
	if err != nil {
		var stateErr *types.InvalidStateError
		if errors.As(err, &stateErr) {
			// Lost a race with another sweep; the trade is already settled.
			return nil, nil
		}
		return nil, fmt.Errorf("resolve trade: %w", err)
	}

	TradesResolvedTotal.WithLabelValues(string(resolution.Status)).Inc()

	auditErr := r.audit.Append(auditlog.Event{
		Timestamp: resolution.Date,
		Action:    auditlog.ActionTradeUpdated,
		TradeID:   trade.ID,
		Data: map[string]interface{}{
			"status":  string(resolution.Status),
			"outcome": string(resolution.Outcome),
			"pnl":     resolution.PnL,
			"roi":     resolution.ROI,
		},
	})
	if auditErr != nil {
		r.logger.Warn("audit-append-failed",
			zap.String("trade-id", trade.ID),
			zap.Error(auditErr))
	}

	r.logger.Info("trade-resolved",
		zap.String("trade-id", trade.ID),
		zap.String("market-id", trade.MarketID),
		zap.String("status", string(resolution.Status)),
		zap.Float64("pnl", resolution.PnL),
		zap.Float64("roi", resolution.ROI))

	return settled, nil
}

// deriveResolution computes the full resolution field set from the final
// market state.
func (r *Resolver) deriveResolution(trade *types.Trade, market *types.Market) types.Resolution {
	won := trade.Side == market.ResolutionOutcome

	status := types.StatusResolvedLoss
	var pnl float64
	if won {
		status = types.StatusResolvedWin
		// Winning shares pay out $1 each.
		pnl = trade.Shares - trade.Amount
	} else {
		pnl = -trade.Amount
	}
	roi := 0.0
	if trade.Amount > 0 {
		roi = pnl / trade.Amount * 100
	}

	date := r.clock.Now()
	if market.ResolutionDate != nil {
		date = *market.ResolutionDate
	}

	// The closing YES price is canonical for CLV on either side.
	clv := analysis.ClosingLineValue(trade.Side, trade.EntryPrice, market.YesPrice)
	var beat *bool
	if clv != nil {
		b := *clv > 0
		beat = &b
	}

	res := types.Resolution{
		Status:          status,
		Date:            date,
		Outcome:         market.ResolutionOutcome,
		ClosingPrice:    market.YesPrice,
		PnL:             pnl,
		ROI:             roi,
		CLV:             clv,
		BeatClosingLine: beat,
		Lessons:         r.lessons(trade, won, clv),
	}
	return res
}

// lessons renders the settlement-time insight line stored on the trade. The
// deeper rule-table analysis runs later, on demand.
func (r *Resolver) lessons(trade *types.Trade, won bool, clv *float64) string {
	beat := clv != nil && *clv > 0

	switch {
	case won && beat:
		return "Profitable trade that beat the closing line - entry and outcome aligned"
	case won && clv != nil:
		return "Won but didn't beat closing line - consider waiting for better entries"
	case won:
		return "Profitable trade - no closing price to judge the entry against"
	case beat:
		return "Beat closing line despite loss - entry was good, outcome unlucky"
	case clv != nil:
		return "Loss without beating the closing line - review entry criteria for this strategy"
	default:
		return "Loss - no closing price to judge the entry against"
	}
}

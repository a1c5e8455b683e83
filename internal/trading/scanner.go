package trading

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/marketdata"
	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// ScanResult summarizes one market scan cycle.
type ScanResult struct {
	MarketsScanned int      `json:"markets_scanned"`
	Opportunities  int      `json:"opportunities"`
	Executed       int      `json:"executed"`
	Denied         int      `json:"denied"`
	Errors         int      `json:"errors"`
	TradeIDs       []string `json:"trade_ids,omitempty"`
}

// Scanner runs the fetch-evaluate-execute cycle: pull active markets, let
// every registered strategy score them, and push each opportunity through
// the risk-checked engine.
type Scanner struct {
	provider marketdata.Provider
	registry *strategy.Registry
	engine   *Engine
	limit    int
	logger   *zap.Logger
}

// NewScanner creates a scanner. limit caps how many markets are fetched per
// cycle; zero means no cap.
func NewScanner(provider marketdata.Provider, registry *strategy.Registry, engine *Engine, limit int, logger *zap.Logger) *Scanner {
	return &Scanner{
		provider: provider,
		registry: registry,
		engine:   engine,
		limit:    limit,
		logger:   logger,
	}
}

// Scan runs one cycle. Risk denials are expected steady-state outcomes and
// are tallied, not treated as errors.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	markets, err := s.provider.ActiveMarkets(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch active markets: %w", err)
	}

	opportunities := s.registry.ScanMarkets(markets)
	result := &ScanResult{
		MarketsScanned: len(markets),
		Opportunities:  len(opportunities),
	}

	for _, opp := range opportunities {
		outcome := s.engine.ExecuteOpportunity(ctx, opp, false)
		switch {
		case outcome.Success:
			result.Executed++
			if outcome.Trade != nil {
				result.TradeIDs = append(result.TradeIDs, outcome.Trade.ID)
			}
		case isRiskDenial(outcome.Err):
			result.Denied++
		default:
			result.Errors++
			s.logger.Warn("opportunity-execution-failed",
				zap.String("market-id", opp.Market.MarketID),
				zap.String("strategy", opp.Strategy),
				zap.Error(outcome.Err))
		}
	}

	s.logger.Info("market-scan-complete",
		zap.Int("markets", result.MarketsScanned),
		zap.Int("opportunities", result.Opportunities),
		zap.Int("executed", result.Executed),
		zap.Int("denied", result.Denied),
		zap.Int("errors", result.Errors))

	return result, nil
}

func isRiskDenial(err error) bool {
	var denied *types.RiskDeniedError
	return errors.As(err, &denied)
}

package trading

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// EngineStatus is the trading engine's self-description, served by the
// status endpoint.
type EngineStatus struct {
	PaperTrading          bool    `json:"paper_trading"`
	MaxPositionSize       float64 `json:"max_position_size"`
	MaxTotalExposure      float64 `json:"max_total_exposure"`
	MaxDailyVolume        float64 `json:"max_daily_volume"`
	MaxPositionsPerMarket int     `json:"max_positions_per_market"`
}

// Engine runs the check-then-act execution sequence. A single mutex funnels
// all writes so the exposure snapshot a risk decision is based on cannot go
// stale between the check and the ledger insert.
type Engine struct {
	mu sync.Mutex

	risk      *RiskManager
	positions *PositionManager
	executor  Executor
	logger    *zap.Logger

	paperTrading bool
}

// NewEngine wires the engine. The executor decides paper vs live; the engine
// only reports which mode it was built with.
func NewEngine(risk *RiskManager, positions *PositionManager, executor Executor, paperTrading bool, logger *zap.Logger) *Engine {
	return &Engine{
		risk:         risk,
		positions:    positions,
		executor:     executor,
		logger:       logger,
		paperTrading: paperTrading,
	}
}

// validate rejects malformed opportunities before any state is read.
func validate(opp *types.Opportunity) error {
	if opp == nil {
		return &types.ValidationError{Field: "opportunity", Message: "is required"}
	}
	if opp.Market.MarketID == "" {
		return &types.ValidationError{Field: "market_id", Message: "is required"}
	}
	if opp.Strategy == "" {
		return &types.ValidationError{Field: "strategy", Message: "is required"}
	}
	if opp.RecommendedAmount <= 0 {
		return &types.ValidationError{Field: "recommended_amount", Message: "must be positive"}
	}
	if opp.RecommendedSide != types.SideYes && opp.RecommendedSide != types.SideNo {
		return &types.ValidationError{Field: "recommended_side", Message: "must be yes or no"}
	}
	if price := opp.Market.PriceForSide(opp.RecommendedSide); price != nil && (*price < 0.01 || *price > 0.99) {
		return &types.ValidationError{Field: "price", Message: "must be between 0.01 and 0.99"}
	}
	return nil
}

// ExecuteOpportunity validates, risk-checks, and executes one opportunity as
// an atomic unit. With force set, risk checks are skipped entirely; the
// override is logged.
func (e *Engine) ExecuteOpportunity(ctx context.Context, opp *types.Opportunity, force bool) *types.TradeResult {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := validate(opp); err != nil {
		ExecutionErrorsTotal.Inc()
		return &types.TradeResult{
			Success:   false,
			Err:       err,
			Error:     err.Error(),
			Simulated: e.paperTrading,
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if force {
		e.logger.Warn("risk-checks-bypassed",
			zap.String("market-id", opp.Market.MarketID),
			zap.String("strategy", opp.Strategy),
			zap.Float64("amount", opp.RecommendedAmount))
	} else {
		check, err := e.checkLocked(ctx, opp)
		if err != nil {
			ExecutionErrorsTotal.Inc()
			return &types.TradeResult{
				Success:   false,
				Err:       err,
				Error:     err.Error(),
				Simulated: e.paperTrading,
			}
		}
		if !check.Allowed {
			RiskDenialsTotal.WithLabelValues(check.Limit).Inc()
			e.logger.Info("trade-denied",
				zap.String("market-id", opp.Market.MarketID),
				zap.String("strategy", opp.Strategy),
				zap.String("limit", check.Limit),
				zap.String("reason", check.Reason))
			denied := &types.RiskDeniedError{Limit: check.Limit, Reason: check.Reason}
			return &types.TradeResult{
				Success:   false,
				Err:       denied,
				Error:     denied.Error(),
				Simulated: e.paperTrading,
			}
		}
	}

	result := e.executor.Execute(ctx, opp)
	if !result.Success {
		ExecutionErrorsTotal.Inc()
		return result
	}

	if exposure, err := e.positions.GetExposure(ctx); err == nil {
		OpenExposureUSD.Set(exposure.TotalExposure)
	}

	return result
}

// CheckRiskLimits runs the limit checks against the current ledger state
// without executing anything. The answer is advisory: the state may change
// before a later execute call, which re-checks under the lock.
func (e *Engine) CheckRiskLimits(ctx context.Context, opp *types.Opportunity) (RiskCheckResult, error) {
	if err := validate(opp); err != nil {
		return RiskCheckResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkLocked(ctx, opp)
}

// checkLocked snapshots exposure and positions and applies the limits.
// Callers must hold e.mu.
func (e *Engine) checkLocked(ctx context.Context, opp *types.Opportunity) (RiskCheckResult, error) {
	exposure, err := e.positions.GetExposure(ctx)
	if err != nil {
		return RiskCheckResult{}, err
	}
	positions, err := e.positions.GetPositions(ctx)
	if err != nil {
		return RiskCheckResult{}, err
	}
	return e.risk.CheckLimits(opp, exposure, positions), nil
}

// GetPositions returns the current open positions.
func (e *Engine) GetPositions(ctx context.Context) ([]Position, error) {
	return e.positions.GetPositions(ctx)
}

// GetExposure returns the current exposure report.
func (e *Engine) GetExposure(ctx context.Context) (*ExposureReport, error) {
	return e.positions.GetExposure(ctx)
}

// Status reports the execution mode and effective limits.
func (e *Engine) Status() EngineStatus {
	cfg := e.risk.Config()
	return EngineStatus{
		PaperTrading:          e.paperTrading,
		MaxPositionSize:       cfg.MaxPositionSize,
		MaxTotalExposure:      cfg.MaxTotalExposure,
		MaxDailyVolume:        cfg.MaxDailyVolume,
		MaxPositionsPerMarket: cfg.MaxPositionsPerMarket,
	}
}

package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/analysis"
	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/resolver"
	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/internal/trading"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

type handlers struct {
	store    ledger.Store
	audit    auditlog.Sink
	clock    clock.Clock
	engine   *trading.Engine
	scanner  *trading.Scanner
	registry *strategy.Registry
	reporter *analysis.Reporter
	resolver *resolver.Resolver
	logger   *zap.Logger
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (h *handlers) writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation *types.ValidationError
		state      *types.InvalidStateError
	)
	switch {
	case errors.Is(err, types.ErrTradeNotFound):
		h.writeError(w, "trade not found", http.StatusNotFound)
	case errors.As(err, &validation):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &state):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("request-failed", zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// ---- Trades API ----

// CreateTradeRequest is the body of POST /api/trades: a manual ledger entry.
type CreateTradeRequest struct {
	Platform       string          `json:"platform"`
	MarketID       string          `json:"market_id"`
	MarketQuestion string          `json:"market_question"`
	MarketCategory string          `json:"market_category,omitempty"`
	MarketEndDate  *time.Time      `json:"market_end_date,omitempty"`
	Side           types.Side      `json:"side"`
	EntryPrice     float64         `json:"entry_price"`
	Amount         float64         `json:"amount"`
	Strategy       string          `json:"strategy"`
	EntryContext   json.RawMessage `json:"entry_context,omitempty"`
}

func (req *CreateTradeRequest) validate() error {
	if req.Platform == "" {
		return &types.ValidationError{Field: "platform", Message: "is required"}
	}
	if req.MarketID == "" {
		return &types.ValidationError{Field: "market_id", Message: "is required"}
	}
	if req.Strategy == "" {
		return &types.ValidationError{Field: "strategy", Message: "is required"}
	}
	if req.Side != types.SideYes && req.Side != types.SideNo {
		return &types.ValidationError{Field: "side", Message: "must be yes or no"}
	}
	if req.Amount <= 0 {
		return &types.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if req.EntryPrice < 0.01 || req.EntryPrice > 0.99 {
		return &types.ValidationError{Field: "entry_price", Message: "must be between 0.01 and 0.99"}
	}
	return nil
}

func (h *handlers) createTrade(w http.ResponseWriter, r *http.Request) {
	var req CreateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		h.writeDomainError(w, err)
		return
	}

	now := h.clock.Now()
	trade := &types.Trade{
		ID:             uuid.New().String(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Platform:       req.Platform,
		MarketID:       req.MarketID,
		MarketQuestion: req.MarketQuestion,
		MarketCategory: req.MarketCategory,
		MarketEndDate:  req.MarketEndDate,
		Side:           req.Side,
		EntryPrice:     req.EntryPrice,
		Amount:         req.Amount,
		Shares:         req.Amount / req.EntryPrice,
		Strategy:       req.Strategy,
		EntryContext:   req.EntryContext,
		Status:         types.StatusOpen,
	}

	if err := h.store.CreateTrade(r.Context(), trade); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.audit.Append(auditlog.Event{
		Timestamp: now,
		Action:    auditlog.ActionTradeCreated,
		TradeID:   trade.ID,
		Data: map[string]interface{}{
			"platform":  trade.Platform,
			"market_id": trade.MarketID,
			"side":      string(trade.Side),
			"amount":    trade.Amount,
			"strategy":  trade.Strategy,
		},
	}); err != nil {
		h.logger.Warn("audit-append-failed", zap.String("trade-id", trade.ID), zap.Error(err))
	}

	h.writeJSON(w, http.StatusCreated, trade)
}

func (h *handlers) listTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 1000 {
			h.writeError(w, "limit must be an integer between 0 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = n
	}

	filter := ledger.Filter{
		Status:   types.TradeStatus(q.Get("status")),
		Strategy: q.Get("strategy"),
		Platform: q.Get("platform"),
		Limit:    limit,
		Offset:   offset,
	}

	trades, err := h.store.ListTrades(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if trades == nil {
		trades = []*types.Trade{}
	}
	h.writeJSON(w, http.StatusOK, trades)
}

func (h *handlers) getTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.store.GetTrade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

// ResolveTradeRequest is the body of PUT /api/trades/{id}/resolve: a manual
// settlement with the final outcome and, when known, the closing YES price.
type ResolveTradeRequest struct {
	Outcome      types.Side `json:"outcome"`
	ClosingPrice *float64   `json:"closing_price,omitempty"`
}

func (h *handlers) resolveTrade(w http.ResponseWriter, r *http.Request) {
	var req ResolveTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Outcome != types.SideYes && req.Outcome != types.SideNo {
		h.writeDomainError(w, &types.ValidationError{Field: "outcome", Message: "must be yes or no"})
		return
	}

	trade, err := h.store.GetTrade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	won := trade.Side == req.Outcome
	status := types.StatusResolvedLoss
	var pnl float64
	if won {
		status = types.StatusResolvedWin
		pnl = trade.Shares - trade.Amount
	} else {
		pnl = -trade.Amount
	}
	roi := 0.0
	if trade.Amount > 0 {
		roi = pnl / trade.Amount * 100
	}

	clv := analysis.ClosingLineValue(trade.Side, trade.EntryPrice, req.ClosingPrice)
	var beat *bool
	if clv != nil {
		b := *clv > 0
		beat = &b
	}

	now := h.clock.Now()
	settled, err := h.store.ResolveTrade(r.Context(), trade.ID, types.Resolution{
		Status:          status,
		Date:            now,
		Outcome:         req.Outcome,
		ClosingPrice:    req.ClosingPrice,
		PnL:             pnl,
		ROI:             roi,
		CLV:             clv,
		BeatClosingLine: beat,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.audit.Append(auditlog.Event{
		Timestamp: now,
		Action:    auditlog.ActionTradeUpdated,
		TradeID:   trade.ID,
		Data: map[string]interface{}{
			"status":  string(status),
			"outcome": string(req.Outcome),
			"pnl":     pnl,
			"roi":     roi,
		},
	}); err != nil {
		h.logger.Warn("audit-append-failed", zap.String("trade-id", trade.ID), zap.Error(err))
	}

	h.writeJSON(w, http.StatusOK, settled)
}

// ---- Strategies API ----

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *handlers) listStrategies(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	infos := make([]StrategyInfo, 0, len(all))
	for _, s := range all {
		infos = append(infos, StrategyInfo{Name: s.Name(), Description: s.Description()})
	}
	h.writeJSON(w, http.StatusOK, infos)
}

// ---- Performance API ----

// OverallPerformance aggregates per-strategy performance for one period.
type OverallPerformance struct {
	Period       string                                   `json:"period"`
	TotalTrades  int                                      `json:"total_trades"`
	TotalWagered float64                                  `json:"total_wagered"`
	TotalPnL     float64                                  `json:"total_pnl"`
	OverallROI   float64                                  `json:"overall_roi"`
	Strategies   map[string]*analysis.StrategyPerformance `json:"strategies"`
}

func periodParam(r *http.Request) string {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = analysis.PeriodAllTime
	}
	return period
}

func (h *handlers) overallPerformance(w http.ResponseWriter, r *http.Request) {
	period := periodParam(r)
	perStrategy, err := h.reporter.Evaluator().CompareStrategies(r.Context(), period)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	overall := OverallPerformance{
		Period:     period,
		Strategies: perStrategy,
	}
	for _, perf := range perStrategy {
		overall.TotalTrades += perf.TotalTrades
		overall.TotalWagered += perf.TotalWagered
		overall.TotalPnL += perf.TotalPnL
	}
	if overall.TotalWagered > 0 {
		overall.OverallROI = overall.TotalPnL / overall.TotalWagered * 100
	}

	h.writeJSON(w, http.StatusOK, overall)
}

func (h *handlers) strategyPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.reporter.Evaluator().Evaluate(r.Context(), chi.URLParam(r, "strategy"), periodParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, perf)
}

// ---- Analysis API ----

func (h *handlers) analyzeTrade(w http.ResponseWriter, r *http.Request) {
	result, err := h.reporter.Analyzer().AnalyzeTrade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handlers) calibration(w http.ResponseWriter, r *http.Request) {
	points, err := h.reporter.Tuner().Calibration(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if points == nil {
		points = []analysis.CalibrationPoint{}
	}
	h.writeJSON(w, http.StatusOK, points)
}

func (h *handlers) improvements(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.reporter.Tuner().SuggestImprovements(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

func (h *handlers) optimalParameters(w http.ResponseWriter, r *http.Request) {
	params, err := h.reporter.Tuner().OptimalParameters(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, params)
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reporter.Build(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

// ---- Trading API ----

func (h *handlers) tradingStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *handlers) executeOpportunity(w http.ResponseWriter, r *http.Request) {
	var opp types.Opportunity
	if err := json.NewDecoder(r.Body).Decode(&opp); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}
	force := r.URL.Query().Get("force") == "true"

	// Denials and execution failures are reported in the result body, not as
	// HTTP errors: the attempt itself succeeded.
	result := h.engine.ExecuteOpportunity(r.Context(), &opp, force)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handlers) checkRisk(w http.ResponseWriter, r *http.Request) {
	var opp types.Opportunity
	if err := json.NewDecoder(r.Body).Decode(&opp); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}

	check, err := h.engine.CheckRiskLimits(r.Context(), &opp)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, check)
}

func (h *handlers) positions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.engine.GetPositions(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if positions == nil {
		positions = []trading.Position{}
	}
	h.writeJSON(w, http.StatusOK, positions)
}

func (h *handlers) exposure(w http.ResponseWriter, r *http.Request) {
	exposure, err := h.engine.GetExposure(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exposure)
}

// ---- Agent cycles ----

func (h *handlers) scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.Scan(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handlers) resolveSweep(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"
	result, err := h.resolver.Sweep(r.Context(), dryRun)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

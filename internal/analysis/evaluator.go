package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// Evaluation periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "all_time"
)

// allTimeFloor anchors the all_time window to a fixed epoch rather than
// "since first trade", keeping the window deterministic.
var allTimeFloor = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// GroupMetrics is the per-category / per-platform breakdown cell.
type GroupMetrics struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
	PnL     float64 `json:"pnl"`
	Wagered float64 `json:"wagered"`
	ROI     float64 `json:"roi"`
	AvgCLV  float64 `json:"avg_clv"`
}

// StrategyPerformance is the full metric set for one strategy over a window.
type StrategyPerformance struct {
	Strategy  string    `json:"strategy"`
	Period    string    `json:"period"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TotalTrades    int `json:"total_trades"`
	OpenTrades     int `json:"open_trades"`
	ResolvedTrades int `json:"resolved_trades"`
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`

	WinRate      float64 `json:"win_rate"`
	TotalWagered float64 `json:"total_wagered"`
	TotalPnL     float64 `json:"total_pnl"`
	ROI          float64 `json:"roi"`

	AvgCLV           float64 `json:"avg_clv"`
	CLVPositiveCount int     `json:"clv_positive_count"`
	CLVPositiveRate  float64 `json:"clv_positive_rate"`

	MaxDrawdown float64  `json:"max_drawdown"`
	SharpeRatio *float64 `json:"sharpe_ratio,omitempty"`

	ByCategory map[string]GroupMetrics `json:"by_category,omitempty"`
	ByPlatform map[string]GroupMetrics `json:"by_platform,omitempty"`
}

// StrategyEvaluator computes performance metrics from the ledger. Read-only.
type StrategyEvaluator struct {
	store ledger.Store
	clock clock.Clock
}

// NewStrategyEvaluator creates an evaluator over the given ledger.
func NewStrategyEvaluator(store ledger.Store, clk clock.Clock) *StrategyEvaluator {
	return &StrategyEvaluator{store: store, clock: clk}
}

func periodStart(period string, end time.Time) (time.Time, error) {
	switch period {
	case PeriodDaily:
		return end.Add(-24 * time.Hour), nil
	case PeriodWeekly:
		return end.Add(-7 * 24 * time.Hour), nil
	case PeriodMonthly:
		return end.Add(-30 * 24 * time.Hour), nil
	case PeriodAllTime:
		return allTimeFloor, nil
	default:
		return time.Time{}, &types.ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", period)}
	}
}

// Evaluate computes a strategy's performance over the lookback window
// ending now.
func (e *StrategyEvaluator) Evaluate(ctx context.Context, strategyName, period string) (*StrategyPerformance, error) {
	end := e.clock.Now()
	start, err := periodStart(period, end)
	if err != nil {
		return nil, err
	}

	trades, err := e.store.ListTrades(ctx, ledger.Filter{
		Strategy:      strategyName,
		CreatedAfter:  &start,
		CreatedBefore: &end,
	})
	if err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", strategyName, err)
	}

	perf := &StrategyPerformance{
		Strategy:  strategyName,
		Period:    period,
		StartDate: start,
		EndDate:   end,
	}
	if len(trades) == 0 {
		return perf, nil
	}

	var resolved []*types.Trade
	for _, t := range trades {
		switch {
		case t.Status.IsResolved():
			resolved = append(resolved, t)
		case t.Status == types.StatusOpen:
			perf.OpenTrades++
		}
		perf.TotalWagered += t.Amount
	}
	perf.TotalTrades = len(trades)
	perf.ResolvedTrades = len(resolved)

	var clvValues []float64
	for _, t := range resolved {
		if t.Status == types.StatusResolvedWin {
			perf.Wins++
		} else {
			perf.Losses++
		}
		if t.PnL != nil {
			perf.TotalPnL += *t.PnL
		}
		if t.CLV != nil {
			clvValues = append(clvValues, *t.CLV)
			if *t.CLV > 0 {
				perf.CLVPositiveCount++
			}
		}
	}

	// Guarded ratios: zero, never NaN.
	if len(resolved) > 0 {
		perf.WinRate = float64(perf.Wins) / float64(len(resolved))
	}
	if perf.TotalWagered > 0 {
		perf.ROI = perf.TotalPnL / perf.TotalWagered * 100
	}
	if len(clvValues) > 0 {
		perf.AvgCLV = meanOf(clvValues)
		perf.CLVPositiveRate = float64(perf.CLVPositiveCount) / float64(len(clvValues))
	}

	perf.MaxDrawdown = maxDrawdown(resolved)
	perf.SharpeRatio = sharpeRatio(resolved)
	perf.ByCategory = groupBy(resolved, func(t *types.Trade) string {
		if t.MarketCategory == "" {
			return "unknown"
		}
		return t.MarketCategory
	})
	perf.ByPlatform = groupBy(resolved, func(t *types.Trade) string {
		if t.Platform == "" {
			return "unknown"
		}
		return t.Platform
	})

	return perf, nil
}

// CompareStrategies evaluates every strategy present in the ledger.
func (e *StrategyEvaluator) CompareStrategies(ctx context.Context, period string) (map[string]*StrategyPerformance, error) {
	trades, err := e.store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	names := make(map[string]struct{})
	for _, t := range trades {
		names[t.Strategy] = struct{}{}
	}

	out := make(map[string]*StrategyPerformance, len(names))
	for name := range names {
		perf, err := e.Evaluate(ctx, name, period)
		if err != nil {
			return nil, err
		}
		out[name] = perf
	}
	return out, nil
}

// SuggestImprovements generates strategy-level suggestions from a computed
// performance. Below 10 resolved trades it only reports the data gap.
func (e *StrategyEvaluator) SuggestImprovements(perf *StrategyPerformance) []string {
	var suggestions []string

	if perf.ResolvedTrades < 10 {
		return []string{fmt.Sprintf(
			"Only %d resolved trades - need more data for reliable analysis", perf.ResolvedTrades)}
	}

	if perf.AvgCLV < 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Negative average CLV (%.1f%%) - review entry criteria", perf.AvgCLV))
		if perf.AvgCLV < -5 {
			suggestions = append(suggestions, "Consider pausing this strategy until edge is re-established")
		}
	} else if perf.AvgCLV > 5 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Strong CLV (%.1f%%) - consider increasing position sizes", perf.AvgCLV))
	}

	if perf.CLVPositiveRate < 0.4 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Only %.0f%% of trades beat closing line - entry timing needs work", perf.CLVPositiveRate*100))
	} else if perf.CLVPositiveRate > 0.6 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Excellent CLV rate (%.0f%%) - strategy has consistent edge", perf.CLVPositiveRate*100))
	}

	// Outcome-vs-CLV divergence is the strongest anomaly signal either way.
	if perf.WinRate < 0.3 && perf.AvgCLV > 0 {
		suggestions = append(suggestions, "Low win rate despite positive CLV - variance or small sample size")
	}
	if perf.WinRate > 0.7 && perf.AvgCLV < 0 {
		suggestions = append(suggestions, "High win rate with negative CLV - getting lucky, adjust entries")
	}

	if perf.ROI < -10 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Significant losses (%.1f%% ROI) - reduce exposure", perf.ROI))
	} else if perf.ROI > 20 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Strong returns (%.1f%% ROI) - maintain current approach", perf.ROI))
	}

	if name, metrics, ok := worstCategory(perf.ByCategory); ok && metrics.ROI < -20 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Underperforming in %s (%.0f%% ROI) - consider avoiding this category", name, metrics.ROI))
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Strategy performing within expectations - continue monitoring")
	}
	return suggestions
}

func worstCategory(byCategory map[string]GroupMetrics) (string, GroupMetrics, bool) {
	var (
		worstName string
		worst     GroupMetrics
		found     bool
	)
	for name, m := range byCategory {
		if !found || m.ROI < worst.ROI {
			worstName, worst, found = name, m, true
		}
	}
	return worstName, worst, found
}

func groupBy(trades []*types.Trade, key func(*types.Trade) string) map[string]GroupMetrics {
	if len(trades) == 0 {
		return nil
	}

	groups := make(map[string][]*types.Trade)
	for _, t := range trades {
		k := key(t)
		groups[k] = append(groups[k], t)
	}

	out := make(map[string]GroupMetrics, len(groups))
	for name, group := range groups {
		var m GroupMetrics
		var clvValues []float64
		for _, t := range group {
			m.Trades++
			if t.Status == types.StatusResolvedWin {
				m.Wins++
			}
			if t.PnL != nil {
				m.PnL += *t.PnL
			}
			m.Wagered += t.Amount
			if t.CLV != nil {
				clvValues = append(clvValues, *t.CLV)
			}
		}
		if m.Trades > 0 {
			m.WinRate = float64(m.Wins) / float64(m.Trades)
		}
		if m.Wagered > 0 {
			m.ROI = m.PnL / m.Wagered * 100
		}
		if len(clvValues) > 0 {
			m.AvgCLV = meanOf(clvValues)
		}
		out[name] = m
	}
	return out
}

// maxDrawdown walks resolved trades in resolution order (creation order when
// unresolved dates are missing) and reports the largest peak-to-trough gap
// in cumulative PnL. Monotone non-negative; 0 for an ever-increasing curve.
func maxDrawdown(trades []*types.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	sorted := make([]*types.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return resolutionTime(sorted[i]).Before(resolutionTime(sorted[j]))
	})

	var cumulative, peak, maxDD float64
	for _, t := range sorted {
		if t.PnL != nil {
			cumulative += *t.PnL
		}
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func resolutionTime(t *types.Trade) time.Time {
	if t.ResolutionDate != nil {
		return *t.ResolutionDate
	}
	return t.CreatedAt
}

// sharpeRatio is mean/stdev of resolved PnL, rounded to 2 decimals. Nil
// under 2 samples or at zero stdev.
func sharpeRatio(trades []*types.Trade) *float64 {
	if len(trades) < 2 {
		return nil
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		if t.PnL != nil {
			returns[i] = *t.PnL
		}
	}

	avg := meanOf(returns)
	var sumSq float64
	for _, r := range returns {
		sumSq += (r - avg) * (r - avg)
	}
	std := math.Sqrt(sumSq / float64(len(returns)-1))
	if std == 0 {
		return nil
	}

	ratio := math.Round(avg/std*100) / 100
	return &ratio
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

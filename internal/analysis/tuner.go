package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// CalibrationPoint compares the price paid (implied probability) against
// the actual win rate within one entry-price bucket.
type CalibrationPoint struct {
	PriceBucket      string  `json:"price_bucket"`
	BucketStart      float64 `json:"bucket_start"`
	BucketEnd        float64 `json:"bucket_end"`
	TotalTrades      int     `json:"total_trades"`
	AvgEntryPrice    float64 `json:"avg_entry_price"`
	ActualWinRate    float64 `json:"actual_win_rate"`
	CalibrationError float64 `json:"calibration_error"`
	IsOverpriced     bool    `json:"is_overpriced"`
	IsUnderpriced    bool    `json:"is_underpriced"`
}

// EntryPriceRanges recommends buckets to favor or avoid.
type EntryPriceRanges struct {
	BestBuckets  []string `json:"best_buckets"`
	AvoidBuckets []string `json:"avoid_buckets"`
}

// PositionSizing is the derived sizing recommendation.
type PositionSizing struct {
	RecommendedBase float64 `json:"recommended_base"`
	MaxPosition     float64 `json:"max_position"`
	Note            string  `json:"note"`
}

// StrategyAllocation names the strategy with the best average CLV.
type StrategyAllocation struct {
	BestPerforming string  `json:"best_performing"`
	BestCLV        float64 `json:"best_clv"`
}

// OptimalParameters is the tuner's derived configuration. Status is
// "insufficient_data" below the sample floor, "calculated" otherwise.
type OptimalParameters struct {
	Status             string             `json:"status"`
	MinRequired        int                `json:"min_required,omitempty"`
	SampleSize         int                `json:"sample_size,omitempty"`
	EntryPrices        EntryPriceRanges   `json:"entry_prices,omitempty"`
	PositionSizing     PositionSizing     `json:"position_sizing,omitempty"`
	StrategyAllocation StrategyAllocation `json:"strategy_allocation,omitempty"`
}

// Minimum sample sizes for the tuner's rules.
const (
	minTradesForSuggestions = 5
	minResolvedForOptimal   = 10
	minBucketSamples        = 3
)

/// ParameterTuner mines resolved trades for systematic patterns: calibration
// by entry price, sizing, timing, category, and strategy allocation.
type ParameterTuner struct {
	store     ledger.Store
	evaluator *StrategyEvaluator
}

// NewParameterTuner creates a tuner over the given ledger.
func NewParameterTuner(store ledger.Store, evaluator *StrategyEvaluator) *ParameterTuner {
	return &ParameterTuner{store: store, evaluator: evaluator}
}

func (p *ParameterTuner) resolvedTrades(ctx context.Context) ([]*types.Trade, error) {
	all, err := p.store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	var resolved []*types.Trade
	for _, t := range all {
		if t.Status.IsResolved() {
			resolved = append(resolved, t)
		}
	}
	return resolved, nil
}

// Calibration buckets resolved trades into ten fixed entry-price bands of
// width 0.10 and reports, per populated bucket, how the win rate compares
// to the price paid. Empty buckets are skipped.
func (p *ParameterTuner) Calibration(ctx context.Context) ([]CalibrationPoint, error) {
	resolved, err := p.resolvedTrades(ctx)
	if err != nil {
		return nil, err
	}
	return calibrate(resolved), nil
}

func calibrate(resolved []*types.Trade) []CalibrationPoint {
	var points []CalibrationPoint

	for i := 0; i < 10; i++ {
		start := float64(i) / 10
		end := float64(i+1) / 10

		var bucket []*types.Trade
		for _, t := range resolved {
			if t.EntryPrice >= start && t.EntryPrice < end {
				bucket = append(bucket, t)
			}
		}
		if len(bucket) == 0 {
			continue
		}

		wins := 0
		var entrySum float64
		for _, t := range bucket {
			if t.Status == types.StatusResolvedWin {
				wins++
			}
			entrySum += t.EntryPrice
		}

		avgEntry := entrySum / float64(len(bucket))
		winRate := float64(wins) / float64(len(bucket))
		calErr := winRate - avgEntry

		points = append(points, CalibrationPoint{
			PriceBucket:      fmt.Sprintf("%.2f-%.2f", start, end),
			BucketStart:      start,
			BucketEnd:        end,
			TotalTrades:      len(bucket),
			AvgEntryPrice:    avgEntry,
			ActualWinRate:    winRate,
			CalibrationError: calErr,
			IsOverpriced:     calErr < -0.05,
			IsUnderpriced:    calErr > 0.05,
		})
	}

	return points
}

// SuggestImprovements runs every pattern analysis independently and returns
// the combined suggestion list. Requires at least 5 trades and 1 resolved
// trade, else only reports the data gap.
func (p *ParameterTuner) SuggestImprovements(ctx context.Context) ([]string, error) {
	all, err := p.store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	if len(all) < minTradesForSuggestions {
		return []string{fmt.Sprintf("Need more trades for meaningful analysis (minimum %d)", minTradesForSuggestions)}, nil
	}

	var resolved []*types.Trade
	for _, t := range all {
		if t.Status.IsResolved() {
			resolved = append(resolved, t)
		}
	}
	if len(resolved) == 0 {
		return []string{"No resolved trades yet - analysis pending"}, nil
	}

	var improvements []string
	improvements = append(improvements, p.analyzeEntryPrices(resolved)...)

	strategyLines, err := p.analyzeStrategyAllocation(ctx)
	if err != nil {
		return nil, err
	}
	improvements = append(improvements, strategyLines...)

	improvements = append(improvements, analyzePositionSizing(resolved)...)
	improvements = append(improvements, analyzeTiming(resolved)...)
	improvements = append(improvements, analyzeCategories(resolved)...)
	improvements = append(improvements, analyzeCLVPatterns(resolved)...)

	if len(improvements) == 0 {
		improvements = append(improvements, "No specific improvements identified - maintain current approach")
	}
	return improvements, nil
}

// OptimalParameters derives entry-price ranges, position sizing, and the
// best strategy from resolved history. Requires 10 resolved trades.
func (p *ParameterTuner) OptimalParameters(ctx context.Context) (*OptimalParameters, error) {
	resolved, err := p.resolvedTrades(ctx)
	if err != nil {
		return nil, err
	}

	if len(resolved) < minResolvedForOptimal {
		return &OptimalParameters{
			Status:      "insufficient_data",
			MinRequired: minResolvedForOptimal,
		}, nil
	}

	calibration := calibrate(resolved)
	var best, avoid []string
	for _, c := range calibration {
		if c.TotalTrades < minBucketSamples {
			continue
		}
		if c.IsUnderpriced {
			best = append(best, c.PriceBucket)
		}
		if c.IsOverpriced {
			avoid = append(avoid, c.PriceBucket)
		}
	}

	var winnerAmounts, loserAmounts []float64
	for _, t := range resolved {
		if t.CLV == nil {
			continue
		}
		if *t.CLV > 0 {
			winnerAmounts = append(winnerAmounts, t.Amount)
		} else if *t.CLV < 0 {
			loserAmounts = append(loserAmounts, t.Amount)
		}
	}
	avgSizeWinners := 10.0
	if len(winnerAmounts) > 0 {
		avgSizeWinners = meanOf(winnerAmounts)
	}
	avgSizeLosers := 10.0
	if len(loserAmounts) > 0 {
		avgSizeLosers = meanOf(loserAmounts)
	}

	sizingNote := "Consider smaller sizes"
	if avgSizeWinners > avgSizeLosers {
		sizingNote = "Winners averaged larger sizes"
	}

	perStrategy, err := p.evaluator.CompareStrategies(ctx, PeriodAllTime)
	if err != nil {
		return nil, err
	}
	bestStrategy, bestCLV := bestByCLV(perStrategy)

	return &OptimalParameters{
		Status:     "calculated",
		SampleSize: len(resolved),
		EntryPrices: EntryPriceRanges{
			BestBuckets:  best,
			AvoidBuckets: avoid,
		},
		PositionSizing: PositionSizing{
			RecommendedBase: round2(math.Min(avgSizeWinners, 20)),
			MaxPosition:     round2(math.Min(avgSizeWinners*2, 50)),
			Note:            sizingNote,
		},
		StrategyAllocation: StrategyAllocation{
			BestPerforming: bestStrategy,
			BestCLV:        round2(bestCLV),
		},
	}, nil
}

func bestByCLV(perStrategy map[string]*StrategyPerformance) (string, float64) {
	names := make([]string, 0, len(perStrategy))
	for name := range perStrategy {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic tie-break

	best := "unknown"
	bestCLV := math.Inf(-1)
	for _, name := range names {
		if perf := perStrategy[name]; perf.AvgCLV > bestCLV {
			best, bestCLV = name, perf.AvgCLV
		}
	}
	if math.IsInf(bestCLV, -1) {
		return "unknown", 0
	}
	return best, bestCLV
}

func (p *ParameterTuner) analyzeEntryPrices(resolved []*types.Trade) []string {
	var suggestions []string
	calibration := calibrate(resolved)

	var overpriced, underpriced []string
	for _, c := range calibration {
		if c.TotalTrades < minBucketSamples {
			continue
		}
		if c.IsOverpriced {
			overpriced = append(overpriced, c.PriceBucket)
		}
		if c.IsUnderpriced {
			underpriced = append(underpriced, c.PriceBucket)
		}
	}

	if len(overpriced) > 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Overpaying in price range(s): %s - require higher edge or avoid", strings.Join(overpriced, ", ")))
	}
	if len(underpriced) > 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Finding edge in range(s): %s - consider increasing allocation", strings.Join(underpriced, ", ")))
	}
	return suggestions
}

func (p *ParameterTuner) analyzeStrategyAllocation(ctx context.Context) ([]string, error) {
	perStrategy, err := p.evaluator.CompareStrategies(ctx, PeriodAllTime)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(perStrategy))
	for name := range perStrategy {
		names = append(names, name)
	}
	sort.Strings(names)

	var suggestions []string
	for _, name := range names {
		perf := perStrategy[name]
		if perf.ResolvedTrades < 5 {
			continue
		}
		if perf.AvgCLV < -5 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Strategy '%s' has negative edge (CLV: %.1f%%) - reduce allocation or pause", name, perf.AvgCLV))
		} else if perf.AvgCLV > 5 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Strategy '%s' showing strong edge (CLV: %.1f%%) - consider increasing allocation", name, perf.AvgCLV))
		}
	}
	return suggestions, nil
}

func analyzePositionSizing(resolved []*types.Trade) []string {
	var largeCLV, smallCLV []float64
	largeCount, smallCount := 0, 0
	for _, t := range resolved {
		if t.Amount > 30 {
			largeCount++
			if t.CLV != nil {
				largeCLV = append(largeCLV, *t.CLV)
			}
		} else {
			smallCount++
			if t.CLV != nil {
				smallCLV = append(smallCLV, *t.CLV)
			}
		}
	}

	if largeCount < minBucketSamples || smallCount < minBucketSamples {
		return nil
	}

	var large, small float64
	if len(largeCLV) > 0 {
		large = meanOf(largeCLV)
	}
	if len(smallCLV) > 0 {
		small = meanOf(smallCLV)
	}

	if large < small-3 {
		return []string{fmt.Sprintf(
			"Larger positions underperforming (CLV: %.1f%% vs %.1f%%) - consider smaller sizes", large, small)}
	}
	return nil
}

func analyzeTiming(resolved []*types.Trade) []string {
	var early, late []float64
	timed := 0
	for _, t := range resolved {
		if t.MarketEndDate == nil || t.CLV == nil {
			continue
		}
		timed++
		if t.MarketEndDate.Sub(t.CreatedAt) > 7*24*time.Hour {
			early = append(early, *t.CLV)
		} else {
			late = append(late, *t.CLV)
		}
	}

	if timed < 5 || len(early) == 0 || len(late) == 0 {
		return nil
	}

	earlyCLV := meanOf(early)
	lateCLV := meanOf(late)

	if earlyCLV > lateCLV+3 {
		return []string{fmt.Sprintf(
			"Better CLV on early entries (%.1f%% vs %.1f%%) - enter earlier in market lifecycle", earlyCLV, lateCLV)}
	}
	if lateCLV > earlyCLV+3 {
		return []string{fmt.Sprintf(
			"Better CLV on late entries (%.1f%% vs %.1f%%) - wait for price discovery", lateCLV, earlyCLV)}
	}
	return nil
}

func analyzeCategories(resolved []*types.Trade) []string {
	byCategory := make(map[string][]float64)
	counts := make(map[string]int)
	for _, t := range resolved {
		cat := t.MarketCategory
		if cat == "" {
			cat = "uncategorized"
		}
		counts[cat]++
		if t.CLV != nil {
			byCategory[cat] = append(byCategory[cat], *t.CLV)
		}
	}

	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var suggestions []string
	for _, cat := range cats {
		if counts[cat] < minBucketSamples || len(byCategory[cat]) == 0 {
			continue
		}
		avgCLV := meanOf(byCategory[cat])
		if avgCLV < -5 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Underperforming in '%s' (CLV: %.1f%%) - consider avoiding or reducing", cat, avgCLV))
		} else if avgCLV > 5 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Strong performance in '%s' (CLV: %.1f%%) - lean into this category", cat, avgCLV))
		}
	}
	return suggestions
}

func analyzeCLVPatterns(resolved []*types.Trade) []string {
	var clvValues []float64
	positive := 0
	for _, t := range resolved {
		if t.CLV == nil {
			continue
		}
		clvValues = append(clvValues, *t.CLV)
		if *t.CLV > 0 {
			positive++
		}
	}
	if len(clvValues) == 0 {
		return nil
	}

	avgCLV := meanOf(clvValues)
	positiveRate := float64(positive) / float64(len(clvValues))

	var suggestions []string
	if avgCLV < 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Overall negative CLV (%.1f%%) - market is consistently pricing better than us", avgCLV))
		if positiveRate < 0.4 {
			suggestions = append(suggestions,
				"Entry timing consistently poor - consider using limit orders or waiting for price moves")
		}
	} else if avgCLV > 3 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Consistently beating closing line (%.1f%% CLV) - edge is real, maintain discipline", avgCLV))
	}
	return suggestions
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

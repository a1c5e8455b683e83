package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// ReportSummary is the trade-count header of an overall report.
type ReportSummary struct {
	TotalTrades int `json:"total_trades"`
	Resolved    int `json:"resolved"`
	Open        int `json:"open"`
}

// OverallReport combines every analytics surface into one document: the
// periodic self-review the agent runs on itself.
type OverallReport struct {
	GeneratedAt         time.Time                       `json:"generated_at"`
	Summary             ReportSummary                   `json:"summary"`
	StrategyPerformance map[string]*StrategyPerformance `json:"strategy_performance"`
	Calibration         []CalibrationPoint              `json:"calibration"`
	Improvements        []string                        `json:"improvements"`
	OptimalParameters   *OptimalParameters              `json:"optimal_parameters"`
	RecentLessons       []string                        `json:"recent_lessons"`
}

// recentLessonCount caps the lesson digest at the most recent resolutions.
const recentLessonCount = 5

// Reporter assembles the overall report from the individual analyzers.
type Reporter struct {
	store     ledger.Store
	analyzer  *ResolutionAnalyzer
	evaluator *StrategyEvaluator
	tuner     *ParameterTuner
	clock     clock.Clock
	logger    *zap.Logger
}

// NewReporter wires a reporter over the given ledger.
func NewReporter(store ledger.Store, clk clock.Clock, logger *zap.Logger) *Reporter {
	evaluator := NewStrategyEvaluator(store, clk)
	return &Reporter{
		store:     store,
		analyzer:  NewResolutionAnalyzer(store),
		evaluator: evaluator,
		tuner:     NewParameterTuner(store, evaluator),
		clock:     clk,
		logger:    logger,
	}
}

// Evaluator exposes the underlying strategy evaluator.
func (r *Reporter) Evaluator() *StrategyEvaluator { return r.evaluator }

// Tuner exposes the underlying parameter tuner.
func (r *Reporter) Tuner() *ParameterTuner { return r.tuner }

// Analyzer exposes the underlying resolution analyzer.
func (r *Reporter) Analyzer() *ResolutionAnalyzer { return r.analyzer }

// Build runs the full analysis pipeline and returns the combined report.
func (r *Reporter) Build(ctx context.Context) (*OverallReport, error) {
	start := time.Now()
	defer func() {
		ReportDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	all, err := r.store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	summary := ReportSummary{TotalTrades: len(all)}
	var resolved []*types.Trade
	for _, t := range all {
		switch {
		case t.Status.IsResolved():
			summary.Resolved++
			resolved = append(resolved, t)
		case t.Status == types.StatusOpen:
			summary.Open++
		}
	}

	perStrategy, err := r.evaluator.CompareStrategies(ctx, PeriodAllTime)
	if err != nil {
		return nil, err
	}
	calibration, err := r.tuner.Calibration(ctx)
	if err != nil {
		return nil, err
	}
	improvements, err := r.tuner.SuggestImprovements(ctx)
	if err != nil {
		return nil, err
	}
	optimal, err := r.tuner.OptimalParameters(ctx)
	if err != nil {
		return nil, err
	}

	ReportsGeneratedTotal.Inc()
	r.logger.Info("analysis-report-built",
		zap.Int("total-trades", summary.TotalTrades),
		zap.Int("resolved", summary.Resolved),
		zap.Int("strategies", len(perStrategy)))

	return &OverallReport{
		GeneratedAt:         r.clock.Now(),
		Summary:             summary,
		StrategyPerformance: perStrategy,
		Calibration:         calibration,
		Improvements:        improvements,
		OptimalParameters:   optimal,
		RecentLessons:       r.recentLessons(resolved),
	}, nil
}

// recentLessons renders digests for the most recently resolved trades,
// newest first.
func (r *Reporter) recentLessons(resolved []*types.Trade) []string {
	sorted := make([]*types.Trade, len(resolved))
	copy(sorted, resolved)
	sort.SliceStable(sorted, func(i, j int) bool {
		return resolutionTime(sorted[i]).After(resolutionTime(sorted[j]))
	})

	if len(sorted) > recentLessonCount {
		sorted = sorted[:recentLessonCount]
	}

	lessons := make([]string, 0, len(sorted))
	for _, t := range sorted {
		summary, err := r.analyzer.LessonSummary(t)
		if err != nil {
			r.logger.Warn("lesson-summary-failed",
				zap.String("trade-id", t.ID),
				zap.Error(err))
			continue
		}
		lessons = append(lessons, summary)
	}
	return lessons
}

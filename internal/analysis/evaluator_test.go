package analysis

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/testutil"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

func seedStore(t *testing.T, trades ...*types.Trade) ledger.Store {
	t.Helper()
	store := ledger.NewMemoryStore()
	for _, tr := range trades {
		if err := store.CreateTrade(context.Background(), tr); err != nil {
			t.Fatalf("CreateTrade: %v", err)
		}
	}
	return store
}

func TestEvaluateEmptyStrategy(t *testing.T) {
	e := NewStrategyEvaluator(ledger.NewMemoryStore(), clock.NewFixed(testutil.BaseTime))

	perf, err := e.Evaluate(context.Background(), "missing_strategy", PeriodAllTime)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if perf.TotalTrades != 0 {
		t.Errorf("TotalTrades = %d, want 0", perf.TotalTrades)
	}
	if perf.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0 (never NaN)", perf.WinRate)
	}
	if math.IsNaN(perf.ROI) || math.IsNaN(perf.AvgCLV) {
		t.Error("ratios are NaN on empty input")
	}
	if !perf.StartDate.Equal(allTimeFloor) {
		t.Errorf("StartDate = %v, want fixed all-time floor", perf.StartDate)
	}
}

func TestEvaluateMetrics(t *testing.T) {
	res := testutil.BaseTime.Add(time.Hour)
	store := seedStore(t,
		// Win: entry 0.40 closing 0.60, PnL +15, CLV +50.
		testutil.NewTrade(testutil.WithEntryPrice(0.40), testutil.Resolved(true, 0.60, res)),
		// Loss: entry 0.50 closing 0.30, PnL -10, CLV -40.
		testutil.NewTrade(testutil.WithMarket("market-2"), testutil.Resolved(false, 0.30, res.Add(time.Minute))),
		// Open trade: counts toward wagered only.
		testutil.NewTrade(testutil.WithMarket("market-3"), testutil.WithAmount(5)),
	)

	e := NewStrategyEvaluator(store, clock.NewFixed(testutil.BaseTime.Add(2*time.Hour)))
	perf, err := e.Evaluate(context.Background(), "test_strategy", PeriodAllTime)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if perf.TotalTrades != 3 || perf.OpenTrades != 1 || perf.ResolvedTrades != 2 {
		t.Errorf("counts = (%d, %d, %d), want (3, 1, 2)",
			perf.TotalTrades, perf.OpenTrades, perf.ResolvedTrades)
	}
	if perf.Wins != 1 || perf.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", perf.Wins, perf.Losses)
	}
	if perf.WinRate != 0.5 {
		t.Errorf("WinRate = %v, want 0.5", perf.WinRate)
	}
	if perf.TotalWagered != 25 {
		t.Errorf("TotalWagered = %v, want 25", perf.TotalWagered)
	}
	if perf.TotalPnL != 5 {
		t.Errorf("TotalPnL = %v, want 5", perf.TotalPnL)
	}
	if perf.ROI != 20 {
		t.Errorf("ROI = %v, want 20", perf.ROI)
	}
	if perf.AvgCLV != 5 {
		t.Errorf("AvgCLV = %v, want 5 ((50-40)/2)", perf.AvgCLV)
	}
	if perf.CLVPositiveRate != 0.5 {
		t.Errorf("CLVPositiveRate = %v, want 0.5", perf.CLVPositiveRate)
	}
}

func TestEvaluatePeriodWindow(t *testing.T) {
	now := testutil.BaseTime
	res := now.Add(-time.Hour)
	store := seedStore(t,
		testutil.NewTrade(testutil.WithCreatedAt(now.Add(-2*time.Hour)), testutil.Resolved(true, 0.90, res)),
		// Eight days old: outside the weekly window.
		testutil.NewTrade(
			testutil.WithMarket("market-2"),
			testutil.WithCreatedAt(now.Add(-8*24*time.Hour)),
			testutil.Resolved(true, 0.90, res),
		),
	)

	e := NewStrategyEvaluator(store, clock.NewFixed(now))

	weekly, err := e.Evaluate(context.Background(), "test_strategy", PeriodWeekly)
	if err != nil {
		t.Fatalf("Evaluate weekly: %v", err)
	}
	if weekly.TotalTrades != 1 {
		t.Errorf("weekly TotalTrades = %d, want 1", weekly.TotalTrades)
	}

	allTime, err := e.Evaluate(context.Background(), "test_strategy", PeriodAllTime)
	if err != nil {
		t.Fatalf("Evaluate all_time: %v", err)
	}
	if allTime.TotalTrades != 2 {
		t.Errorf("all_time TotalTrades = %d, want 2", allTime.TotalTrades)
	}
}

func TestEvaluateRejectsUnknownPeriod(t *testing.T) {
	e := NewStrategyEvaluator(ledger.NewMemoryStore(), clock.NewFixed(testutil.BaseTime))

	if _, err := e.Evaluate(context.Background(), "test_strategy", "hourly"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestMaxDrawdown(t *testing.T) {
	// Cumulative PnL walks 10, 15, -20, -17: peak 15, trough -20, gap 35.
	// The final +3 recovery must not shrink the reported drawdown.
	res := testutil.BaseTime
	mk := func(pnl float64, offset time.Duration) *types.Trade {
		tr := testutil.NewTrade(testutil.Resolved(pnl > 0, 0.90, res.Add(offset)))
		tr.PnL = &pnl
		return tr
	}

	trades := []*types.Trade{
		mk(10, 0),
		mk(5, time.Minute),
		mk(-35, 2*time.Minute),
		mk(3, 3*time.Minute),
	}

	if got := maxDrawdown(trades); got != 35 {
		t.Errorf("maxDrawdown = %v, want 35 (peak 15 to trough -20)", got)
	}
}

func TestMaxDrawdownMonotoneGains(t *testing.T) {
	res := testutil.BaseTime
	var trades []*types.Trade
	for i := 0; i < 3; i++ {
		tr := testutil.NewTrade(testutil.Resolved(true, 0.90, res.Add(time.Duration(i)*time.Minute)))
		pnl := 10.0
		tr.PnL = &pnl
		trades = append(trades, tr)
	}

	if got := maxDrawdown(trades); got != 0 {
		t.Errorf("maxDrawdown = %v, want 0 for ever-increasing PnL", got)
	}
	if got := maxDrawdown(nil); got != 0 {
		t.Errorf("maxDrawdown(nil) = %v, want 0", got)
	}
}

func TestMaxDrawdownOrdersByResolutionDate(t *testing.T) {
	res := testutil.BaseTime
	mk := func(pnl float64, resolvedAt time.Time) *types.Trade {
		tr := testutil.NewTrade(testutil.Resolved(pnl > 0, 0.90, resolvedAt))
		tr.PnL = &pnl
		return tr
	}

	// Given in reverse chronological order; sorted by resolution date the
	// sequence is +20 then -15, a drawdown of 15. Unsorted it would be 0.
	trades := []*types.Trade{
		mk(-15, res.Add(time.Hour)),
		mk(20, res),
	}

	if got := maxDrawdown(trades); got != 15 {
		t.Errorf("maxDrawdown = %v, want 15 (resolution-date order)", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	res := testutil.BaseTime
	mk := func(pnl float64) *types.Trade {
		tr := testutil.NewTrade(testutil.Resolved(pnl > 0, 0.90, res))
		tr.PnL = &pnl
		return tr
	}

	if got := sharpeRatio([]*types.Trade{mk(10)}); got != nil {
		t.Errorf("sharpeRatio = %v with one trade, want nil", *got)
	}
	if got := sharpeRatio([]*types.Trade{mk(10), mk(10), mk(10)}); got != nil {
		t.Errorf("sharpeRatio = %v with zero stdev, want nil", *got)
	}

	// Returns 10 and -10: mean 0, so the ratio is 0.
	got := sharpeRatio([]*types.Trade{mk(10), mk(-10)})
	if got == nil || *got != 0 {
		t.Errorf("sharpeRatio = %v, want 0", got)
	}
}

func TestCompareStrategies(t *testing.T) {
	res := testutil.BaseTime.Add(time.Hour)
	store := seedStore(t,
		testutil.NewTrade(testutil.Resolved(true, 0.90, res)),
		testutil.NewTrade(
			testutil.WithMarket("market-2"),
			testutil.WithStrategy("other_strategy"),
			testutil.Resolved(false, 0.10, res),
		),
	)

	e := NewStrategyEvaluator(store, clock.NewFixed(testutil.BaseTime.Add(2*time.Hour)))
	all, err := e.CompareStrategies(context.Background(), PeriodAllTime)
	if err != nil {
		t.Fatalf("CompareStrategies: %v", err)
	}

	if len(all) != 2 {
		t.Fatalf("got %d strategies, want 2", len(all))
	}
	if all["test_strategy"].Wins != 1 {
		t.Errorf("test_strategy wins = %d, want 1", all["test_strategy"].Wins)
	}
	if all["other_strategy"].Losses != 1 {
		t.Errorf("other_strategy losses = %d, want 1", all["other_strategy"].Losses)
	}
}

func TestSuggestImprovementsNeedsData(t *testing.T) {
	e := NewStrategyEvaluator(ledger.NewMemoryStore(), clock.NewFixed(testutil.BaseTime))

	got := e.SuggestImprovements(&StrategyPerformance{ResolvedTrades: 3})
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want only the data-gap notice", len(got))
	}
}

func TestSuggestImprovementsDivergence(t *testing.T) {
	e := NewStrategyEvaluator(ledger.NewMemoryStore(), clock.NewFixed(testutil.BaseTime))

	perf := &StrategyPerformance{
		ResolvedTrades:  12,
		WinRate:         0.8,
		AvgCLV:          -2,
		CLVPositiveRate: 0.5,
	}
	got := e.SuggestImprovements(perf)

	found := false
	for _, s := range got {
		if s == "High win rate with negative CLV - getting lucky, adjust entries" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions = %v, want the win-vs-CLV divergence flag", got)
	}
}

func TestGroupByCategory(t *testing.T) {
	res := testutil.BaseTime.Add(time.Hour)
	store := seedStore(t,
		testutil.NewTrade(testutil.WithCategory("politics"), testutil.Resolved(true, 0.90, res)),
		testutil.NewTrade(
			testutil.WithMarket("market-2"),
			testutil.WithCategory("politics"),
			testutil.Resolved(false, 0.10, res),
		),
		testutil.NewTrade(
			testutil.WithMarket("market-3"),
			testutil.WithCategory("sports"),
			testutil.Resolved(true, 0.90, res),
		),
	)

	e := NewStrategyEvaluator(store, clock.NewFixed(testutil.BaseTime.Add(2*time.Hour)))
	perf, err := e.Evaluate(context.Background(), "test_strategy", PeriodAllTime)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	politics := perf.ByCategory["politics"]
	if politics.Trades != 2 || politics.Wins != 1 || politics.WinRate != 0.5 {
		t.Errorf("politics = %+v, want 2 trades, 1 win", politics)
	}
	sports := perf.ByCategory["sports"]
	if sports.Trades != 1 || sports.WinRate != 1 {
		t.Errorf("sports = %+v, want 1 trade, win rate 1", sports)
	}
	if len(perf.ByPlatform) != 1 || perf.ByPlatform["polymarket"].Trades != 3 {
		t.Errorf("ByPlatform = %v, want polymarket with 3 trades", perf.ByPlatform)
	}
}

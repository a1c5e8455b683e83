package trading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/testutil"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

func newTestEngine(t *testing.T, cfg RiskConfig) (*Engine, ledger.Store) {
	t.Helper()
	store := ledger.NewMemoryStore()
	clk := clock.NewFixed(testutil.BaseTime)
	logger := zap.NewNop()

	risk := NewRiskManager(cfg)
	positions := NewPositionManager(store, cfg, clk)
	exec := NewPaperExecutor(store, auditlog.NopSink{}, clk, logger)
	return NewEngine(risk, positions, exec, true, logger), store
}

func TestExecuteOpportunity(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, RiskConfig{MaxPositionSize: 100, MaxTotalExposure: 1000})

	opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 30)
	res := engine.ExecuteOpportunity(ctx, &opp, false)
	if !res.Success {
		t.Fatalf("ExecuteOpportunity failed: %s", res.Error)
	}

	trades, err := store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
}

func TestExecuteOpportunityDeniedBySize(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, RiskConfig{MaxPositionSize: 50, MaxTotalExposure: 1000})

	opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 60)
	res := engine.ExecuteOpportunity(ctx, &opp, false)
	if res.Success {
		t.Fatal("expected denial for $60 trade against $50 cap")
	}

	var denied *types.RiskDeniedError
	if !errors.As(res.Err, &denied) {
		t.Fatalf("Err = %T, want *types.RiskDeniedError", res.Err)
	}
	if denied.Limit != types.LimitMaxPositionSize {
		t.Errorf("Limit = %q, want %q", denied.Limit, types.LimitMaxPositionSize)
	}

	trades, err := store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("got %d trades after denial, want 0", len(trades))
	}
}

func TestExecuteOpportunityForceBypassesChecks(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, RiskConfig{MaxPositionSize: 50, MaxTotalExposure: 1000})

	opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 60)
	res := engine.ExecuteOpportunity(ctx, &opp, true)
	if !res.Success {
		t.Fatalf("forced execution failed: %s", res.Error)
	}
}

func TestExecuteOpportunityValidation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, RiskConfig{MaxPositionSize: 100, MaxTotalExposure: 1000})

	market := testutil.Market(0.40, 0.60)

	tests := []struct {
		name   string
		mutate func(*types.Opportunity)
	}{
		{"zero-amount", func(o *types.Opportunity) { o.RecommendedAmount = 0 }},
		{"negative-amount", func(o *types.Opportunity) { o.RecommendedAmount = -5 }},
		{"missing-market-id", func(o *types.Opportunity) { o.Market.MarketID = "" }},
		{"missing-strategy", func(o *types.Opportunity) { o.Strategy = "" }},
		{"bad-side", func(o *types.Opportunity) { o.RecommendedSide = "maybe" }},
		{"price-at-one", func(o *types.Opportunity) {
			one := 1.0
			o.Market.YesPrice = &one
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opp := testutil.Opportunity(market, types.SideYes, 30)
			tc.mutate(&opp)

			res := engine.ExecuteOpportunity(ctx, &opp, false)
			if res.Success {
				t.Fatal("expected validation failure")
			}
			var verr *types.ValidationError
			if !errors.As(res.Err, &verr) {
				t.Errorf("Err = %T, want *types.ValidationError", res.Err)
			}
		})
	}

	// Validation runs even with force: force skips risk checks, not input
	// checks.
	opp := testutil.Opportunity(market, types.SideYes, -1)
	if res := engine.ExecuteOpportunity(ctx, &opp, true); res.Success {
		t.Error("forced execution accepted invalid amount")
	}
}

// Two trades that each fit the exposure cap individually but not together
// must not both be admitted, regardless of interleaving.
func TestExecuteOpportunityNoDoubleAdmit(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, RiskConfig{MaxPositionSize: 100, MaxTotalExposure: 100})

	var wg sync.WaitGroup
	results := make([]*types.TradeResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 70)
			opp.Market.MarketID = "market-" + string(rune('a'+i))
			results[i] = engine.ExecuteOpportunity(ctx, &opp, false)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("%d of 2 concurrent $70 trades admitted against $100 cap, want exactly 1", succeeded)
	}

	trades, err := store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Errorf("ledger holds %d trades, want 1", len(trades))
	}
}

func TestCheckRiskLimitsDoesNotExecute(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, RiskConfig{MaxPositionSize: 100, MaxTotalExposure: 1000})

	opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 30)
	res, err := engine.CheckRiskLimits(ctx, &opp)
	if err != nil {
		t.Fatalf("CheckRiskLimits: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected pass, got denial: %s", res.Reason)
	}

	trades, err := store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("check wrote %d trades, want 0", len(trades))
	}
}

func TestEngineStatus(t *testing.T) {
	engine, _ := newTestEngine(t, RiskConfig{MaxPositionSize: 100, MaxTotalExposure: 1000})

	st := engine.Status()
	if !st.PaperTrading {
		t.Error("PaperTrading = false, want true")
	}
	if st.MaxPositionSize != 100 || st.MaxTotalExposure != 1000 {
		t.Errorf("limits = (%v, %v), want (100, 1000)", st.MaxPositionSize, st.MaxTotalExposure)
	}
	if st.MaxDailyVolume != 2000 {
		t.Errorf("MaxDailyVolume = %v, want defaulted 2000", st.MaxDailyVolume)
	}
	if st.MaxPositionsPerMarket != 1 {
		t.Errorf("MaxPositionsPerMarket = %d, want defaulted 1", st.MaxPositionsPerMarket)
	}
}

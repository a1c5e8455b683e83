package trading

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/internal/testutil"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// stubProvider returns a fixed set of active markets.
type stubProvider struct {
	markets []types.Market
	err     error
}

func (p *stubProvider) ActiveMarkets(ctx context.Context, limit int) ([]types.Market, error) {
	return p.markets, p.err
}

func (p *stubProvider) Market(ctx context.Context, marketID string) (*types.Market, error) {
	for i := range p.markets {
		if p.markets[i].MarketID == marketID {
			return &p.markets[i], nil
		}
	}
	return nil, errors.New("not found")
}

func scanMarket(id, question string, yes, no float64) types.Market {
	m := testutil.Market(yes, no)
	m.MarketID = id
	m.Question = question
	return m
}

func newTestScanner(t *testing.T, provider *stubProvider, cfg RiskConfig) (*Scanner, ledger.Store) {
	t.Helper()
	engine, store := newTestEngine(t, cfg)
	scanner := NewScanner(provider, strategy.Default(), engine, 0, zap.NewNop())
	return scanner, store
}

func TestScanExecutesOpportunities(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{markets: []types.Market{
		// Sensational long shot: nothing-ever-happens fades it with NO.
		scanMarket("m-war", "Will a nuclear war start this year?", 0.08, 0.92),
		// Boring mid-price market, no strategy fires.
		scanMarket("m-dull", "Will the measure pass?", 0.50, 0.50),
	}}
	scanner, store := newTestScanner(t, provider, RiskConfig{
		MaxPositionSize:  100,
		MaxTotalExposure: 1000,
	})

	result, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.MarketsScanned != 2 {
		t.Errorf("markets scanned = %d, want 2", result.MarketsScanned)
	}
	if result.Opportunities != 1 {
		t.Fatalf("opportunities = %d, want 1", result.Opportunities)
	}
	if result.Executed != 1 || result.Denied != 0 || result.Errors != 0 {
		t.Fatalf("result = %+v, want 1 executed", result)
	}

	trades, err := store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].MarketID != "m-war" {
		t.Errorf("market id = %s, want m-war", trades[0].MarketID)
	}
	if trades[0].Side != types.SideNo {
		t.Errorf("side = %s, want no", trades[0].Side)
	}
	if trades[0].Strategy != "nothing_ever_happens" {
		t.Errorf("strategy = %s, want nothing_ever_happens", trades[0].Strategy)
	}
}

func TestScanTalliesRiskDenials(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{markets: []types.Market{
		scanMarket("m-war", "Will a nuclear war start this year?", 0.08, 0.92),
	}}
	// Position cap below the strategy's $50 size, so the engine denies.
	scanner, store := newTestScanner(t, provider, RiskConfig{
		MaxPositionSize:  10,
		MaxTotalExposure: 1000,
	})

	result, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Denied != 1 {
		t.Errorf("denied = %d, want 1", result.Denied)
	}
	if result.Executed != 0 || result.Errors != 0 {
		t.Errorf("result = %+v, want only a denial", result)
	}

	trades, _ := store.ListTrades(ctx, ledger.Filter{})
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0 after denial", len(trades))
	}
}

func TestScanPropagatesFetchFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("gateway timeout")}
	scanner, _ := newTestScanner(t, provider, RiskConfig{})

	if _, err := scanner.Scan(context.Background()); err == nil {
		t.Fatal("expected error when market fetch fails")
	}
}

func TestScanEmptyMarkets(t *testing.T) {
	scanner, _ := newTestScanner(t, &stubProvider{}, RiskConfig{})

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.MarketsScanned != 0 || result.Opportunities != 0 {
		t.Errorf("result = %+v, want all zero", result)
	}
}

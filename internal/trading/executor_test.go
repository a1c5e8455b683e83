package trading

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/testutil"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// recordingSink captures audit events in memory.
type recordingSink struct {
	events []auditlog.Event
}

func (s *recordingSink) Append(e auditlog.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func TestPaperExecute(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	sink := &recordingSink{}
	clk := clock.NewFixed(testutil.BaseTime)
	exec := NewPaperExecutor(store, sink, clk, zap.NewNop())

	market := testutil.Market(0.40, 0.60)
	opp := testutil.Opportunity(market, types.SideNo, 30)

	res := exec.Execute(ctx, &opp)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Error)
	}
	if !res.Simulated {
		t.Error("Simulated = false, want true")
	}

	tr := res.Trade
	if tr.EntryPrice != 0.60 {
		t.Errorf("EntryPrice = %v, want 0.60 (no-side price)", tr.EntryPrice)
	}
	if tr.Shares != 50 {
		t.Errorf("Shares = %v, want 50", tr.Shares)
	}
	if tr.Status != types.StatusOpen {
		t.Errorf("Status = %q, want open", tr.Status)
	}
	if !tr.CreatedAt.Equal(testutil.BaseTime) {
		t.Errorf("CreatedAt = %v, want fixed clock time", tr.CreatedAt)
	}

	// The trade must be durable in the ledger, not just in the result.
	stored, err := store.GetTrade(ctx, tr.ID)
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if stored.Amount != 30 {
		t.Errorf("stored Amount = %v, want 30", stored.Amount)
	}

	var entryCtx map[string]interface{}
	if err := json.Unmarshal(stored.EntryContext, &entryCtx); err != nil {
		t.Fatalf("unmarshal entry context: %v", err)
	}
	if entryCtx["execution_mode"] != "paper" {
		t.Errorf("execution_mode = %v, want paper", entryCtx["execution_mode"])
	}
	if entryCtx["signal_strength"] != 0.8 {
		t.Errorf("signal_strength = %v, want 0.8", entryCtx["signal_strength"])
	}

	if len(sink.events) != 1 {
		t.Fatalf("got %d audit events, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Action != auditlog.ActionPaperTradeExecuted {
		t.Errorf("audit action = %q, want %q", ev.Action, auditlog.ActionPaperTradeExecuted)
	}
	if ev.TradeID != tr.ID {
		t.Errorf("audit trade id = %q, want %q", ev.TradeID, tr.ID)
	}
}

func TestPaperExecuteRejectsMissingPrice(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	exec := NewPaperExecutor(store, auditlog.NopSink{}, clock.System(), zap.NewNop())

	market := testutil.Market(0.40, 0.60)
	market.NoPrice = nil
	opp := testutil.Opportunity(market, types.SideNo, 30)

	res := exec.Execute(ctx, &opp)
	if res.Success {
		t.Fatal("expected failure on missing price")
	}
	var priceErr *types.InvalidPriceError
	if !errors.As(res.Err, &priceErr) {
		t.Fatalf("Err = %T, want *types.InvalidPriceError", res.Err)
	}

	// No partial write.
	trades, err := store.ListTrades(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("got %d trades after rejected execution, want 0", len(trades))
	}
}

func TestPaperExecuteRejectsZeroPrice(t *testing.T) {
	ctx := context.Background()
	exec := NewPaperExecutor(ledger.NewMemoryStore(), auditlog.NopSink{}, clock.System(), zap.NewNop())

	market := testutil.Market(0, 1)
	opp := testutil.Opportunity(market, types.SideYes, 30)

	res := exec.Execute(ctx, &opp)
	if res.Success {
		t.Fatal("expected failure on zero price")
	}
	var priceErr *types.InvalidPriceError
	if !errors.As(res.Err, &priceErr) {
		t.Fatalf("Err = %T, want *types.InvalidPriceError", res.Err)
	}
}

// An audit sink failure must not undo the ledger write.
type failingSink struct{}

func (failingSink) Append(auditlog.Event) error { return errors.New("disk full") }
func (failingSink) Close() error                { return nil }

func TestPaperExecuteSurvivesAuditFailure(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	exec := NewPaperExecutor(store, failingSink{}, clock.System(), zap.NewNop())

	opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 30)
	res := exec.Execute(ctx, &opp)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Error)
	}

	if _, err := store.GetTrade(ctx, res.Trade.ID); err != nil {
		t.Errorf("trade missing after audit failure: %v", err)
	}
}

func TestLiveExecuteFailsClosed(t *testing.T) {
	exec := NewLiveExecutor(zap.NewNop())

	opp := testutil.Opportunity(testutil.Market(0.40, 0.60), types.SideYes, 30)
	res := exec.Execute(context.Background(), &opp)

	if res.Success {
		t.Fatal("live execution must not succeed")
	}
	if !errors.Is(res.Err, types.ErrNotImplemented) {
		t.Errorf("Err = %v, want ErrNotImplemented", res.Err)
	}
	if res.Simulated {
		t.Error("Simulated = true for live executor, want false")
	}
}

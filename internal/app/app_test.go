package app

import (
	"testing"
	"time"

	"github.com/acastellana/prediction-agent/pkg/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:           "info",
		HTTPPort:           "0",
		PolymarketGammaURL: "https://gamma-api.polymarket.com",
		ScanInterval:       5 * time.Minute,
		ScanMarketLimit:    200,
		ResolveInterval:    time.Hour,
		PaperTrading:       true,
		MaxPositionSize:    100,
		MaxTotalExposure:   1000,
		CacheTTL:           time.Minute,
		CacheMaxItems:      100,
		StorageMode:        "memory",
	}
}

func TestNewWiresComponents(t *testing.T) {
	a, err := New(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.engine == nil || a.scanner == nil || a.resolver == nil || a.sched == nil {
		t.Error("expected all trading components to be wired")
	}
	if a.httpServer == nil {
		t.Error("expected HTTP server to be wired")
	}

	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestShutdownIsCleanBeforeStart(t *testing.T) {
	a, err := New(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case <-a.ctx.Done():
	default:
		t.Error("expected app context to be cancelled after shutdown")
	}
}

package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/pkg/cache"
	"github.com/acastellana/prediction-agent/pkg/types"
)

const sampleMarket = `{
	"id": "12345",
	"question": "Will there be a nuclear war in 2026?",
	"category": "Geopolitics",
	"endDate": "2026-12-31T23:59:59Z",
	"outcomePrices": "[\"0.05\", \"0.95\"]",
	"volumeNum": 250000.5,
	"closed": false
}`

func TestFetchActiveMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("path = %q, want /markets", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("closed") != "false" || q.Get("active") != "true" {
			t.Errorf("query = %v, want closed=false active=true", q)
		}
		fmt.Fprintf(w, "[%s]", sampleMarket)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	markets, err := client.FetchActiveMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchActiveMarkets: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("got %d markets, want 1", len(markets))
	}

	m := markets[0]
	if m.Platform != "polymarket" || m.MarketID != "12345" {
		t.Errorf("identity = (%s, %s)", m.Platform, m.MarketID)
	}
	if m.YesPrice == nil || *m.YesPrice != 0.05 {
		t.Errorf("YesPrice = %v, want 0.05", m.YesPrice)
	}
	if m.NoPrice == nil || *m.NoPrice != 0.95 {
		t.Errorf("NoPrice = %v, want 0.95", m.NoPrice)
	}
	if m.Volume == nil || *m.Volume != 250000.5 {
		t.Errorf("Volume = %v, want 250000.5", m.Volume)
	}
	if m.Category != "Geopolitics" {
		t.Errorf("Category = %q", m.Category)
	}
	if m.EndDate == nil || m.EndDate.Year() != 2026 {
		t.Errorf("EndDate = %v", m.EndDate)
	}
	if m.Resolved {
		t.Error("Resolved = true for open market")
	}
}

func TestFetchActiveMarketsPagination(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			// Full first page triggers a second request.
			fmt.Fprint(w, "[")
			for i := 0; i < MaxBatchSize; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"id": "m%d", "question": "q", "closed": false}`, i)
			}
			fmt.Fprint(w, "]")
			return
		}
		fmt.Fprint(w, `[{"id": "last", "question": "q", "closed": false}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	markets, err := client.FetchActiveMarkets(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchActiveMarkets: %v", err)
	}
	if pages != 2 {
		t.Errorf("made %d requests, want 2", pages)
	}
	if len(markets) != MaxBatchSize+1 {
		t.Errorf("got %d markets, want %d", len(markets), MaxBatchSize+1)
	}
}

func TestFetchMarketResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/12345" {
			t.Errorf("path = %q, want /markets/12345", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"id": "12345",
			"question": "Will there be a nuclear war in 2026?",
			"outcomePrices": "[\"0.01\", \"0.99\"]",
			"closed": true,
			"outcome": "no",
			"updatedAt": "2026-06-01T00:00:00Z"
		}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	m, err := client.FetchMarket(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchMarket: %v", err)
	}
	if !m.Resolved {
		t.Error("Resolved = false, want true")
	}
	if m.ResolutionOutcome != types.SideNo {
		t.Errorf("ResolutionOutcome = %q, want no", m.ResolutionOutcome)
	}
	if m.ResolutionDate == nil {
		t.Error("ResolutionDate is nil for closed market")
	}
}

func TestFetchMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	if _, err := client.FetchMarket(context.Background(), "missing"); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("err = %v, want ErrMarketNotFound", err)
	}
}

func TestFetchMarketServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	if _, err := client.FetchMarket(context.Background(), "12345"); err == nil {
		t.Error("expected error on 502")
	}
}

func TestCachedProviderServesFromCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, sampleMarket)
	}))
	defer srv.Close()

	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewRistrettoCache: %v", err)
	}
	defer c.Close()

	provider := NewCachedProvider(NewGammaProvider(NewClient(srv.URL, zap.NewNop())), c, time.Minute)

	first, err := provider.Market(context.Background(), "12345")
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	c.(*cache.RistrettoCache).Wait()

	second, err := provider.Market(context.Background(), "12345")
	if err != nil {
		t.Fatalf("Market (cached): %v", err)
	}

	if calls != 1 {
		t.Errorf("made %d upstream calls, want 1", calls)
	}
	if first.MarketID != second.MarketID {
		t.Errorf("cached market differs: %q vs %q", first.MarketID, second.MarketID)
	}
}

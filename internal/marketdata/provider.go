package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/acastellana/prediction-agent/pkg/cache"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// Provider is the market data boundary consumed by the scanner and the
// resolution sweep.
type Provider interface {
	// ActiveMarkets returns the current open market snapshots.
	ActiveMarkets(ctx context.Context, limit int) ([]types.Market, error)

	// Market returns one market by platform id, resolved or not.
	// Returns ErrMarketNotFound when the platform does not know it.
	Market(ctx context.Context, marketID string) (*types.Market, error)
}

// CachedProvider wraps a Provider with a TTL cache per market id. Scan
// cycles and resolution sweeps frequently re-request the same markets
// within a minute.
type CachedProvider struct {
	inner Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps inner with the given cache and per-entry TTL.
func NewCachedProvider(inner Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c, ttl: ttl}
}

/// ActiveMarkets always goes to the platform: the full open set changes
// between scans, and each fetched market refreshes the per-id cache.
func (p *CachedProvider) ActiveMarkets(ctx context.Context, limit int) ([]types.Market, error) {
	markets, err := p.inner.ActiveMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range markets {
		m := markets[i]
		p.cache.Set(marketKey(m.MarketID), &m, p.ttl)
	}
	return markets, nil
}

// Market serves from cache when fresh, falling back to the platform.
func (p *CachedProvider) Market(ctx context.Context, marketID string) (*types.Market, error) {
	if v, ok := p.cache.Get(marketKey(marketID)); ok {
		if m, ok := v.(*types.Market); ok {
			return m, nil
		}
	}

	m, err := p.inner.Market(ctx, marketID)
	if err != nil {
		return nil, err
	}
	p.cache.Set(marketKey(marketID), m, p.ttl)
	return m, nil
}

func marketKey(marketID string) string {
	return fmt.Sprintf("market:%s:%s", Platform, marketID)
}

// gammaProvider adapts Client to the Provider interface.
type gammaProvider struct {
	client *Client
}

// NewGammaProvider exposes the Gamma client as a Provider.
func NewGammaProvider(client *Client) Provider {
	return gammaProvider{client: client}
}

func (p gammaProvider) ActiveMarkets(ctx context.Context, limit int) ([]types.Market, error) {
	return p.client.FetchActiveMarkets(ctx, limit)
}

func (p gammaProvider) Market(ctx context.Context, marketID string) (*types.Market, error) {
	return p.client.FetchMarket(ctx, marketID)
}

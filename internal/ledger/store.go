package ledger

import (
	"context"
	"time"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// Filter narrows a ledger query. Zero values mean "no constraint".
type Filter struct {
	Status        types.TradeStatus
	Strategy      string
	Platform      string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

/// Store is the trade ledger: the sole source of truth for trades. All other
// entities are computed from it.
//
// ResolveTrade applies the full resolution field set atomically and only to
// an open trade; a second attempt fails with InvalidStateError and leaves
// the stored fields untouched.
type Store interface {
	CreateTrade(ctx context.Context, trade *types.Trade) error
	GetTrade(ctx context.Context, id string) (*types.Trade, error)
	ListTrades(ctx context.Context, f Filter) ([]*types.Trade, error)
	ResolveTrade(ctx context.Context, id string, res types.Resolution) (*types.Trade, error)
	Close() error
}

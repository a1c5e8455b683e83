package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// MemoryStore is an in-memory ledger. Used when no database is configured
// and throughout the test suite.
type MemoryStore struct {
	mu     sync.RWMutex
	trades map[string]*types.Trade
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades: make(map[string]*types.Trade),
	}
}

// CreateTrade inserts a new trade.
func (m *MemoryStore) CreateTrade(ctx context.Context, trade *types.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *trade
	m.trades[trade.ID] = &cp
	return nil
}

// GetTrade returns the trade with the given ID.
func (m *MemoryStore) GetTrade(ctx context.Context, id string) (*types.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trade, ok := m.trades[id]
	if !ok {
		return nil, types.ErrTradeNotFound
	}

	cp := *trade
	return &cp, nil
}

// ListTrades returns trades matching the filter, newest first.
func (m *MemoryStore) ListTrades(ctx context.Context, f Filter) ([]*types.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*types.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		if !matches(t, f) {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []*types.Trade{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	return matched, nil
}

// ResolveTrade applies the resolution field set to an open trade. The write
// is atomic under the store lock: concurrent readers see either the open
// trade or the fully resolved one, never a torn row.
func (m *MemoryStore) ResolveTrade(ctx context.Context, id string, res types.Resolution) (*types.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trade, ok := m.trades[id]
	if !ok {
		return nil, types.ErrTradeNotFound
	}

	if trade.Status != types.StatusOpen {
		return nil, &types.InvalidStateError{TradeID: id, Status: trade.Status, Op: "resolve"}
	}

	applyResolution(trade, res)

	cp := *trade
	return &cp, nil
}

// Close is a no-op for the in-memory ledger.
func (m *MemoryStore) Close() error { return nil }

func matches(t *types.Trade, f Filter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Strategy != "" && t.Strategy != f.Strategy {
		return false
	}
	if f.Platform != "" && t.Platform != f.Platform {
		return false
	}
	if f.CreatedAfter != nil && t.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && t.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func applyResolution(trade *types.Trade, res types.Resolution) {
	trade.Status = res.Status
	trade.ResolutionDate = &res.Date
	trade.ResolutionOutcome = res.Outcome
	trade.ClosingPrice = res.ClosingPrice
	pnl := res.PnL
	roi := res.ROI
	trade.PnL = &pnl
	trade.ROI = &roi
	trade.CLV = res.CLV
	trade.BeatClosingLine = res.BeatClosingLine
	trade.Lessons = res.Lessons
	trade.UpdatedAt = res.Date
}

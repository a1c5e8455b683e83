package types

import (
	"encoding/json"
	"time"
)

// Side is the side of a binary market a trade is on.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// TradeStatus is the lifecycle state of a trade. Open is the only initial
// state; resolved and cancelled states are terminal.
type TradeStatus string

const (
	StatusOpen         TradeStatus = "open"
	StatusResolvedWin  TradeStatus = "resolved_win"
	StatusResolvedLoss TradeStatus = "resolved_loss"
	StatusCancelled    TradeStatus = "cancelled"
)

// IsResolved reports whether the status is a terminal win or loss.
func (s TradeStatus) IsResolved() bool {
	return s == StatusResolvedWin || s == StatusResolvedLoss
}

// IsTerminal reports whether the status permits no further transitions.
func (s TradeStatus) IsTerminal() bool {
	return s.IsResolved() || s == StatusCancelled
}

// Trade is the ledger record. Immutable once created except for the single
// resolution transition, which sets all resolution fields at once.
type Trade struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Platform and market.
	Platform       string     `json:"platform"`
	MarketID       string     `json:"market_id"`
	MarketQuestion string     `json:"market_question"`
	MarketCategory string     `json:"market_category,omitempty"`
	MarketEndDate  *time.Time `json:"market_end_date,omitempty"`

	// Trade terms.
	Side       Side    `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	Amount     float64 `json:"amount"`
	Shares     float64 `json:"shares"` // amount / entry_price, set once at creation

	// Strategy provenance. EntryContext is an opaque JSON blob the core
	// never interprets.
	Strategy     string          `json:"strategy"`
	EntryContext json.RawMessage `json:"entry_context,omitempty"`

	Status TradeStatus `json:"status"`

	// Resolution fields, set together exactly once. Nil pointers mean the
	// value is absent, not zero (a trade without a closing price has an
	// undefined CLV).
	ResolutionDate    *time.Time `json:"resolution_date,omitempty"`
	ResolutionOutcome Side       `json:"resolution_outcome,omitempty"`
	ClosingPrice      *float64   `json:"closing_price,omitempty"`
	PnL               *float64   `json:"pnl,omitempty"`
	ROI               *float64   `json:"roi,omitempty"`
	CLV               *float64   `json:"clv,omitempty"`
	BeatClosingLine   *bool      `json:"beat_closing_line,omitempty"`
	Lessons           string     `json:"lessons,omitempty"`
}

// Resolution carries the full set of resolution fields applied to an open
// trade in one atomic update.
type Resolution struct {
	Status          TradeStatus `json:"status"`
	Date            time.Time   `json:"date"`
	Outcome         Side        `json:"outcome"`
	ClosingPrice    *float64    `json:"closing_price,omitempty"`
	PnL             float64     `json:"pnl"`
	ROI             float64     `json:"roi"`
	CLV             *float64    `json:"clv,omitempty"`
	BeatClosingLine *bool       `json:"beat_closing_line,omitempty"`
	Lessons         string      `json:"lessons,omitempty"`
}

// TradeResult is the outcome of one execution attempt.
type TradeResult struct {
	Success   bool   `json:"success"`
	Trade     *Trade `json:"trade,omitempty"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
	Simulated bool   `json:"simulated"`
}

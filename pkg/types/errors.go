package types

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by the live executor until real order
// routing exists. Fail-closed by construction.
var ErrNotImplemented = errors.New("live trading not implemented: use paper trading mode")

// ErrTradeNotFound is returned by ledger lookups for unknown trade IDs.
var ErrTradeNotFound = errors.New("trade not found")

// Risk limit tags reported on denial. Callers match on these, not on the
// human-readable reason.
const (
	LimitMaxPositionSize    = "max_position_size"
	LimitMaxTotalExposure   = "max_total_exposure"
	LimitDailyVolume        = "daily_volume"
	LimitPositionsPerMarket = "positions_per_market"
)

// ValidationError reports malformed input rejected before any ledger write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RiskDeniedError reports a failed risk limit check. Not fatal: the caller
// may retry with different parameters or force.
type RiskDeniedError struct {
	Limit  string // one of the Limit* tags
	Reason string
}

func (e *RiskDeniedError) Error() string {
	return fmt.Sprintf("risk check failed (%s): %s", e.Limit, e.Reason)
}

// InvalidPriceError reports that the executor could not price the
// recommended side of an opportunity.
type InvalidPriceError struct {
	Side  Side
	Price *float64
}

func (e *InvalidPriceError) Error() string {
	if e.Price == nil {
		return fmt.Sprintf("no %s price in market snapshot", e.Side)
	}
	return fmt.Sprintf("invalid %s price: %v", e.Side, *e.Price)
}

// InvalidStateError reports an operation applied to a trade in the wrong
// lifecycle state, such as analyzing an open trade or double-resolving.
type InvalidStateError struct {
	TradeID string
	Status  TradeStatus
	Op      string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s trade %s in state %q", e.Op, e.TradeID, e.Status)
}

// InsufficientDataError signals a degraded analytics result rather than a
// failure: the caller keeps running and retries once more trades resolve.
type InsufficientDataError struct {
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d trades, need %d", e.Actual, e.Required)
}

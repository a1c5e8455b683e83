package types

import "time"

// Market is a point-in-time snapshot of a prediction market, as supplied by
// a platform provider. The core treats it as read-only input.
type Market struct {
	Platform    string     `json:"platform"`
	MarketID    string     `json:"market_id"`
	Question    string     `json:"question"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	// Snapshot prices. Nil when the platform did not report a price.
	YesPrice  *float64 `json:"yes_price,omitempty"`
	NoPrice   *float64 `json:"no_price,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
	Liquidity *float64 `json:"liquidity,omitempty"`

	// Resolution state, populated by the provider once the market settles.
	Resolved          bool       `json:"resolved"`
	ResolutionOutcome Side       `json:"resolution_outcome,omitempty"`
	ResolutionDate    *time.Time `json:"resolution_date,omitempty"`
}

// PriceForSide returns the snapshot price for the given side, or nil when
// the platform did not report one.
func (m *Market) PriceForSide(side Side) *float64 {
	if side == SideYes {
		return m.YesPrice
	}
	return m.NoPrice
}

// Opportunity is a strategy's proposal to trade a specific market.
type Opportunity struct {
	Market            Market  `json:"market"`
	Strategy          string  `json:"strategy"`
	SignalStrength    float64 `json:"signal_strength"` // [0,1]
	RecommendedSide   Side    `json:"recommended_side"`
	RecommendedAmount float64 `json:"recommended_amount"`
	ExpectedValue     float64 `json:"expected_value"`
	Reasoning         string  `json:"reasoning"`
}

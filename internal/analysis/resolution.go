// Package analysis holds the post-resolution analytics: per-trade lessons,
// strategy performance evaluation, calibration, and parameter tuning. CLV is
// the primary success metric throughout: winning or losing a single trade is
// noise, consistently beating the closing line is signal.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/types"
)

// TradeAnalysis is the full post-mortem of one resolved trade.
type TradeAnalysis struct {
	TradeID      string   `json:"trade_id"`
	Strategy     string   `json:"strategy"`
	Won          bool     `json:"won"`
	PnL          float64  `json:"pnl"`
	ROI          float64  `json:"roi"`
	EntryPrice   float64  `json:"entry_price"`
	ClosingPrice *float64 `json:"closing_price,omitempty"`
	CLV          *float64 `json:"clv,omitempty"`

	BeatClosingLine *bool `json:"beat_closing_line,omitempty"`
	WasGoodEntry    bool  `json:"was_good_entry"`
	WasGoodSizing   bool  `json:"was_good_sizing"`

	WhatWentRight         []string `json:"what_went_right"`
	WhatWentWrong         []string `json:"what_went_wrong"`
	SuggestedImprovements []string `json:"suggested_improvements"`
}

// ClosingLineValue computes CLV as a percentage, rounded to 2 decimals.
// For a YES trade the edge is the closing price relative to entry. A NO
// purchase at p is an implicit YES sale at 1-p, so the computation flips.
// Nil closing price means CLV is undefined, not zero.
func ClosingLineValue(side types.Side, entryPrice float64, closingPrice *float64) *float64 {
	if closingPrice == nil {
		return nil
	}
	if entryPrice <= 0 || entryPrice >= 1 {
		return nil
	}

	var clv float64
	if side == types.SideYes {
		clv = ((*closingPrice - entryPrice) / entryPrice) * 100
	} else {
		impliedYes := 1 - entryPrice
		clv = ((impliedYes - *closingPrice) / impliedYes) * 100
	}

	clv = math.Round(clv*100) / 100
	return &clv
}

// ResolutionAnalyzer produces per-trade lessons. It is stateless: all
// inputs come from the trade itself.
type ResolutionAnalyzer struct {
	store ledger.Store
}

// NewResolutionAnalyzer creates an analyzer over the given ledger. The
// ledger is only used to fetch trades by id; AnalyzeResolvedTrade itself is
// a pure function of the trade.
func NewResolutionAnalyzer(store ledger.Store) *ResolutionAnalyzer {
	return &ResolutionAnalyzer{store: store}
}

// AnalyzeTrade fetches a trade and analyzes it.
func (a *ResolutionAnalyzer) AnalyzeTrade(ctx context.Context, id string) (*TradeAnalysis, error) {
	trade, err := a.store.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeResolvedTrade(trade)
}

// AnalyzeResolvedTrade analyzes a single resolved trade. Fails with an
// invalid-state error when the trade is still open or cancelled.
func (a *ResolutionAnalyzer) AnalyzeResolvedTrade(trade *types.Trade) (*TradeAnalysis, error) {
	if !trade.Status.IsResolved() {
		return nil, &types.InvalidStateError{TradeID: trade.ID, Status: trade.Status, Op: "analyze"}
	}

	won := trade.Status == types.StatusResolvedWin

	pnl := derivePnL(trade, won)
	roi := 0.0
	if trade.Amount > 0 {
		roi = pnl / trade.Amount * 100
	}

	clv := trade.CLV
	if clv == nil {
		clv = ClosingLineValue(trade.Side, trade.EntryPrice, trade.ClosingPrice)
	}
	var beat *bool
	if clv != nil {
		b := *clv > 0
		beat = &b
	}

	return &TradeAnalysis{
		TradeID:               trade.ID,
		Strategy:              trade.Strategy,
		Won:                   won,
		PnL:                   pnl,
		ROI:                   roi,
		EntryPrice:            trade.EntryPrice,
		ClosingPrice:          trade.ClosingPrice,
		CLV:                   clv,
		BeatClosingLine:       beat,
		WasGoodEntry:          clv == nil || *clv > 0,
		WasGoodSizing:         trade.Amount >= 1 && trade.Amount <= 50,
		WhatWentRight:         identifyPositives(trade, won, clv),
		WhatWentWrong:         identifyNegatives(trade, won, clv),
		SuggestedImprovements: suggestTradeImprovements(trade, won, clv),
	}, nil
}

// derivePnL uses the stored PnL when present. Otherwise: a win pays $1 per
// share minus cost, a loss forfeits the stake.
func derivePnL(trade *types.Trade, won bool) float64 {
	if trade.PnL != nil {
		return *trade.PnL
	}
	if won {
		return trade.Shares * (1 - trade.EntryPrice)
	}
	return -trade.Amount
}

// Each rule below is independent and may contribute zero or more lines.
// The fallbacks guarantee the lists are never silently empty.

func identifyPositives(trade *types.Trade, won bool, clv *float64) []string {
	var positives []string

	if clv != nil && *clv > 0 {
		positives = append(positives, fmt.Sprintf("Positive CLV of %.1f%% - beat the closing line", *clv))
		if *clv > 10 {
			positives = append(positives, "Exceptional edge identified (>10% CLV)")
		}
	}

	if won {
		positives = append(positives, "Trade resolved in our favor")
		if trade.EntryPrice < 0.3 {
			positives = append(positives, "Correctly identified underpriced longshot")
		} else if trade.EntryPrice > 0.7 {
			positives = append(positives, "Correctly faded overpriced favorite")
		}
	}

	if trade.Strategy == "nothing_ever_happens" && won {
		positives = append(positives, "Sensational event fizzled as expected - base rate held")
	}
	if trade.Strategy == "yield_farming" && clv != nil && *clv > 0 {
		positives = append(positives, "Near-certainty priced imperfectly - captured the residual edge")
	}

	if trade.ClosingPrice != nil {
		move := math.Abs(*trade.ClosingPrice - trade.EntryPrice)
		if move > 0.1 {
			positives = append(positives, fmt.Sprintf("Good timing - price moved %.0f%% after entry", move*100))
		}
	}

	if len(positives) == 0 {
		positives = append(positives, "No clear positives identified - review needed")
	}
	return positives
}

func identifyNegatives(trade *types.Trade, won bool, clv *float64) []string {
	var negatives []string

	if clv != nil && *clv < 0 {
		negatives = append(negatives, fmt.Sprintf("Negative CLV of %.1f%% - entered at worse price than close", *clv))
		if *clv < -10 {
			negatives = append(negatives, "Severely mispriced entry (>10% worse than close)")
		}
	}

	if !won {
		negatives = append(negatives, "Trade resolved against us")
		if trade.EntryPrice > 0.7 {
			negatives = append(negatives, "Lost on high-probability position - consider hedging")
		} else if trade.EntryPrice < 0.3 {
			negatives = append(negatives, "Longshot didn't hit - expected but painful")
		}
	}

	if clv != nil && *clv < 0 && won {
		negatives = append(negatives, "Won despite negative CLV - got lucky, don't repeat this entry")
	}

	if trade.Amount > 50 {
		negatives = append(negatives, fmt.Sprintf("Position size $%.0f may be too large", trade.Amount))
	}

	switch trade.MarketCategory {
	case "politics", "crypto":
		if clv != nil && *clv < -5 {
			negatives = append(negatives, fmt.Sprintf("Underperformed in %s - high volatility category", trade.MarketCategory))
		}
	}

	return negatives
}

func suggestTradeImprovements(trade *types.Trade, won bool, clv *float64) []string {
	var suggestions []string

	if clv != nil {
		if *clv < -5 {
			suggestions = append(suggestions,
				"Wait for better entry price - consider limit orders",
				"Check if news/info was already priced in before entering")
		}
		if *clv < -10 {
			suggestions = append(suggestions, "Review information sources - market knew something we didn't")
		}
	}

	if trade.EntryPrice > 0.85 {
		suggestions = append(suggestions, "High entry prices leave little room for profit - require higher edge")
	}
	if trade.EntryPrice < 0.15 {
		suggestions = append(suggestions, "Low entry prices are often longshots - ensure sufficient edge")
	}

	if trade.Strategy == "nothing_ever_happens" && !won {
		suggestions = append(suggestions, "Something happened this time - check whether the headline had real substance")
	}
	if trade.Strategy == "yield_farming" && clv != nil && *clv < 0 {
		suggestions = append(suggestions, "Near-certainty entry had no residual edge - skip below the price floor")
	}

	if trade.Amount > 30 && !won {
		suggestions = append(suggestions, "Consider smaller position sizes for uncertain bets")
	}

	if trade.MarketEndDate != nil && clv != nil && *clv < 0 {
		if trade.MarketEndDate.Sub(trade.CreatedAt) > 30*24*time.Hour {
			suggestions = append(suggestions, "Long-dated markets: consider scaling in over time")
		}
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Continue current approach - this was a reasonable trade")
	}
	return suggestions
}

// LessonSummary renders a human-readable digest of one resolved trade.
func (a *ResolutionAnalyzer) LessonSummary(trade *types.Trade) (string, error) {
	analysis, err := a.AnalyzeResolvedTrade(trade)
	if err != nil {
		return "", err
	}

	outcome := "LOST"
	if analysis.Won {
		outcome = "WON"
	}
	clvStr := "N/A"
	if analysis.CLV != nil {
		clvStr = fmt.Sprintf("%+.1f%%", *analysis.CLV)
	}
	quality := "poor entry"
	if analysis.WasGoodEntry {
		quality = "good entry"
	}

	id := trade.ID
	if len(id) > 8 {
		id = id[:8]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Trade %s | %s | CLV: %s | %s\n", id, outcome, clvStr, quality)
	fmt.Fprintf(&b, "Strategy: %s | Entry: %.0f%% | PnL: $%+.2f\n", trade.Strategy, trade.EntryPrice*100, analysis.PnL)

	b.WriteString("\nWhat went right:\n")
	for _, item := range analysis.WhatWentRight {
		fmt.Fprintf(&b, "  + %s\n", item)
	}
	if len(analysis.WhatWentWrong) > 0 {
		b.WriteString("\nWhat went wrong:\n")
		for _, item := range analysis.WhatWentWrong {
			fmt.Fprintf(&b, "  - %s\n", item)
		}
	}
	if len(analysis.SuggestedImprovements) > 0 {
		b.WriteString("\nLessons:\n")
		for _, item := range analysis.SuggestedImprovements {
			fmt.Fprintf(&b, "  > %s\n", item)
		}
	}

	return b.String(), nil
}

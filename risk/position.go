// Package risk owns position sizing, stop-loss/take-profit placement and
// monitoring, and PnL arithmetic.
package risk

import "time"

// Position is the single live holding for a symbol. The engine enforces at
// most one open position per symbol.
type Position struct {
	Symbol   string
	Size     float64
	AvgPrice float64
	OpenedAt time.Time

	// Guard prices, nil when the corresponding guard is disabled.
	StopLoss   *float64
	TakeProfit *float64
}

// Open reports whether the position holds any size.
func (p *Position) Open() bool {
	return p != nil && p.Size > 0
}

// UnrealizedPercent is the long position's percentage gain at current price.
func (p *Position) UnrealizedPercent(current float64) float64 {
	if p == nil || p.AvgPrice == 0 {
		return 0
	}
	return (current - p.AvgPrice) / p.AvgPrice * 100
}

// UnrealizedPL is the quote-currency gain at current price.
func (p *Position) UnrealizedPL(current float64) float64 {
	if p == nil {
		return 0
	}
	return (current - p.AvgPrice) * p.Size
}

// RealizedPL computes the quote-currency profit of a closed round trip.
func RealizedPL(entry, exit, quantity float64) float64 {
	return (exit - entry) * quantity
}

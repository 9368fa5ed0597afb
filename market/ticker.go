package market

import "time"

// Ticker is a point-in-time market quote for a single instrument.
type Ticker struct {
	Instrument string
	Last       float64
	Bid        float64
	Ask        float64
	High24     float64
	Low24      float64
	Open24     float64
	Volume     float64
	Time       time.Time
}

// Mid returns the bid/ask midpoint, falling back to the last trade when the
// book sides are missing.
func (t Ticker) Mid() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2
	}
	return t.Last
}

// Spread returns the ask-bid spread.
func (t Ticker) Spread() float64 {
	return t.Ask - t.Bid
}

// Package market defines the core market data types shared by the
// indicator, strategy, risk and broker layers.
package market

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidData marks malformed or non-chronological market data. It is
// surfaced, never blindly retried.
var ErrInvalidData = errors.New("invalid market data")

// Candle represents one interval's OHLCV snapshot.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether all price fields are finite and positive and the
// timestamp is set. Volume may be zero (synthetic tick candles).
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Volume < 0 || math.IsNaN(c.Volume) {
		return false
	}
	return !c.Time.IsZero()
}

// FromTicker builds a synthetic candle from the latest ticker:
// open = high = low = close = last traded price.
func FromTicker(t Ticker) Candle {
	ts := t.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return Candle{
		Time:   ts,
		Open:   t.Last,
		High:   t.Last,
		Low:    t.Last,
		Close:  t.Last,
		Volume: t.Volume,
	}
}

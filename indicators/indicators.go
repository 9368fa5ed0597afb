// Package indicators computes technical analysis series from a candle
// window. Every series is recomputed from scratch on each update; at the
// window sizes involved (cap 1000) this is cheap and keeps the numerics
// trivially deterministic.
package indicators

import "github.com/rustyeddy/tradebot/market"

// Default periods, matching the strategy layer's expectations.
const (
	SMAShortPeriod  = 20
	SMALongPeriod   = 50
	RSIPeriod       = 14
	MACDFastPeriod  = 12
	MACDSlowPeriod  = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerStdDev = 2.0
)

// Set holds all indicator series aligned to the tail of the price window.
// Each series is shorter than the window by its warmup length; an indicator
// with insufficient data has an empty series, never an error.
type Set struct {
	SMA20     []float64
	SMA50     []float64
	RSI       []float64
	MACD      []MACDPoint
	Bollinger []Band
}

// MACDPoint is one MACD sample: line, signal and histogram.
type MACDPoint struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// Band is one Bollinger sample.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
	// Close is the close the band was computed at, kept so strategies can
	// judge price position without reaching back into the history.
	Close float64
}

// Names lists the series that currently hold data, for status reporting.
func (s *Set) Names() []string {
	names := make([]string, 0, 5)
	if len(s.SMA20) > 0 {
		names = append(names, "sma20")
	}
	if len(s.SMA50) > 0 {
		names = append(names, "sma50")
	}
	if len(s.RSI) > 0 {
		names = append(names, "rsi")
	}
	if len(s.MACD) > 0 {
		names = append(names, "macd")
	}
	if len(s.Bollinger) > 0 {
		names = append(names, "bollinger")
	}
	return names
}

// Compute builds the full indicator set from a snapshot. Below
// market.MinSamples the set is empty: strategies downgrade to HOLD.
func Compute(candles []market.Candle) *Set {
	s := &Set{}
	if len(candles) < market.MinSamples {
		return s
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	s.SMA20 = SMA(closes, SMAShortPeriod)
	s.SMA50 = SMA(closes, SMALongPeriod)
	s.RSI = RSI(closes, RSIPeriod)
	s.MACD = MACD(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignal)
	s.Bollinger = BollingerBands(closes, BollingerPeriod, BollingerStdDev)
	return s
}

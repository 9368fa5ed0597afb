package indicators

// MACD returns the MACD series: line = fastEMA - slowEMA, signal =
// EMA(line, signalPeriod), histogram = line - signal. Points are emitted
// only once the signal line is defined, so all three fields are always
// populated; length is len(values) - slow - signalPeriod + 2.
func MACD(values []float64, fast, slow, signalPeriod int) []MACDPoint {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return nil
	}

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	if len(slowEMA) == 0 {
		return nil
	}

	// fastEMA is longer; align both to the tail.
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signal := EMA(line, signalPeriod)
	if len(signal) == 0 {
		return nil
	}

	out := make([]MACDPoint, len(signal))
	lineOffset := len(line) - len(signal)
	for i := range signal {
		l := line[i+lineOffset]
		out[i] = MACDPoint{
			MACD:      l,
			Signal:    signal[i],
			Histogram: l - signal[i],
		}
	}
	return out
}

package indicators

// BollingerBands returns the Bollinger band series: middle = SMA(period),
// upper/lower = middle +/- mult * stddev over the same window. Length is
// len(values)-period+1.
func BollingerBands(values []float64, period int, mult float64) []Band {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]Band, 0, len(values)-period+1)
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]

		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		sd := stddev(window)
		out = append(out, Band{
			Upper:  mean + mult*sd,
			Middle: mean,
			Lower:  mean - mult*sd,
			Close:  values[i],
		})
	}
	return out
}

package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rustyeddy/tradebot/market"
)

// Seed generates n synthetic candles ending now, spaced by step, walking
// from around start with bounded moves. The live path also uses it as seed
// data when the exchange rate-limits the bulk history fetch at startup.
func Seed(start float64, n int, step time.Duration, rng *rand.Rand) []market.Candle {
	if n <= 0 || start <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if step <= 0 {
		step = time.Minute
	}

	first := time.Now().Add(-time.Duration(n-1) * step)
	px := start

	out := make([]market.Candle, n)
	for i := range out {
		open := px
		px *= 1 + (rng.Float64()-0.5)*0.004
		high := open
		low := open
		if px > high {
			high = px
		}
		if px < low {
			low = px
		}
		// A little wick either side.
		high *= 1 + rng.Float64()*0.001
		low *= 1 - rng.Float64()*0.001

		out[i] = market.Candle{
			Time:   first.Add(time.Duration(i) * step),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  px,
			Volume: 50 + rng.Float64()*100,
		}
	}
	return out
}

// IntervalDuration maps an exchange interval id ("1m", "5m", "1H", "1D") to
// its duration.
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "", "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1H":
		return time.Hour, nil
	case "4H":
		return 4 * time.Hour, nil
	case "1D":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: unknown interval %q", market.ErrInvalidData, interval)
}

package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradebot/indicators"
)

// evalSMACrossover signals on the short SMA crossing the long SMA:
// BUY on an upward cross, SELL on a downward cross. Confidence scales with
// the normalized distance between the averages.
func evalSMACrossover(set *indicators.Set, cfg SMAConfig) Signal {
	cfg = Config{SMA: cfg}.withDefaults().SMA

	short, long := set.SMA20, set.SMA50
	if len(short) < 2 || len(long) < 2 {
		return hold("insufficient SMA data")
	}

	curShort, prevShort := short[len(short)-1], short[len(short)-2]
	curLong, prevLong := long[len(long)-1], long[len(long)-2]

	if curLong == 0 {
		return hold("degenerate SMA data")
	}

	trendStrength := math.Abs(curShort-curLong) / curLong * 100
	confidence := clampConfidence(trendStrength * 2)

	switch {
	case curShort > curLong && prevShort <= prevLong:
		return Signal{
			Action:     Buy,
			Reason:     fmt.Sprintf("SMA%d crossed above SMA%d", cfg.ShortPeriod, cfg.LongPeriod),
			Confidence: confidence,
		}
	case curShort < curLong && prevShort >= prevLong:
		return Signal{
			Action:     Sell,
			Reason:     fmt.Sprintf("SMA%d crossed below SMA%d", cfg.ShortPeriod, cfg.LongPeriod),
			Confidence: confidence,
		}
	}
	return hold("no SMA cross")
}

// evalRSI signals oversold bounces and overbought pullbacks. Confidence
// scales with how fast RSI is moving.
func evalRSI(set *indicators.Set, cfg RSIConfig) Signal {
	cfg = Config{RSI: cfg}.withDefaults().RSI

	rsi := set.RSI
	if len(rsi) < 2 {
		return hold("insufficient RSI data")
	}

	cur, prev := rsi[len(rsi)-1], rsi[len(rsi)-2]
	change := cur - prev
	confidence := clampConfidence(math.Abs(change) * 2)

	switch {
	case cur < cfg.Oversold && change > 0:
		return Signal{
			Action:     Buy,
			Reason:     fmt.Sprintf("RSI oversold bounce (%.1f)", cur),
			Confidence: confidence,
		}
	case cur > cfg.Overbought && change < 0:
		return Signal{
			Action:     Sell,
			Reason:     fmt.Sprintf("RSI overbought pullback (%.1f)", cur),
			Confidence: confidence,
		}
	}
	return hold("RSI in neutral range")
}

// evalMACD signals on the MACD line crossing its signal line, confirmed by
// the histogram landing on the cross side.
func evalMACD(set *indicators.Set) Signal {
	macd := set.MACD
	if len(macd) < 2 {
		return hold("insufficient MACD data")
	}

	cur, prev := macd[len(macd)-1], macd[len(macd)-2]
	confidence := clampConfidence(math.Abs(cur.Histogram-prev.Histogram) * 10)

	switch {
	case cur.MACD > cur.Signal && prev.MACD <= prev.Signal && cur.Histogram > 0:
		return Signal{Action: Buy, Reason: "MACD bullish cross", Confidence: confidence}
	case cur.MACD < cur.Signal && prev.MACD >= prev.Signal && cur.Histogram < 0:
		return Signal{Action: Sell, Reason: "MACD bearish cross", Confidence: confidence}
	}
	return hold("no MACD cross")
}

// evalBollinger signals touches of the bands, inclusive of a 1% tolerance
// around each band. Confidence scales with how far price sits from the
// band midpoint.
func evalBollinger(set *indicators.Set) Signal {
	bands := set.Bollinger
	if len(bands) < 1 {
		return hold("insufficient Bollinger data")
	}

	b := bands[len(bands)-1]
	width := b.Upper - b.Lower
	if width <= 0 {
		return hold("flat Bollinger band")
	}

	position := (b.Close - b.Lower) / width
	confidence := clampConfidence(math.Abs(position-0.5) * 200)

	switch {
	case b.Close <= b.Lower*1.01:
		return Signal{Action: Buy, Reason: "price at lower Bollinger band", Confidence: confidence}
	case b.Close >= b.Upper*0.99:
		return Signal{Action: Sell, Reason: "price at upper Bollinger band", Confidence: confidence}
	}
	return hold("price inside Bollinger bands")
}

// evalCombined requires at least two of the four component strategies to
// agree. Confidence is the mean of the non-HOLD component confidences.
func evalCombined(set *indicators.Set, cfg Config) Signal {
	votes := []Signal{
		evalSMACrossover(set, cfg.SMA),
		evalRSI(set, cfg.RSI),
		evalMACD(set),
		evalBollinger(set),
	}

	var buys, sells, active int
	var total float64
	for _, v := range votes {
		switch v.Action {
		case Buy:
			buys++
		case Sell:
			sells++
		}
		if v.Action != Hold {
			active++
			total += v.Confidence
		}
	}

	avg := 0.0
	if active > 0 {
		avg = total / float64(active)
	}

	switch {
	case buys >= 2:
		return Signal{
			Action:     Buy,
			Reason:     fmt.Sprintf("%d indicators confirm buy", buys),
			Confidence: avg,
		}
	case sells >= 2:
		return Signal{
			Action:     Sell,
			Reason:     fmt.Sprintf("%d indicators confirm sell", sells),
			Confidence: avg,
		}
	}
	return hold("indicators disagree")
}

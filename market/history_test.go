package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkCandles(n int, start time.Time) []Candle {
	out := make([]Candle, n)
	for i := range out {
		px := 100.0 + float64(i)
		out[i] = Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   px,
			High:   px + 1,
			Low:    px - 1,
			Close:  px,
			Volume: 10,
		}
	}
	return out
}

func TestHistoryBulkLoad(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("replaces window", func(t *testing.T) {
		h := NewHistory(10)
		require.NoError(t, h.BulkLoad(mkCandles(5, base)))
		assert.Equal(t, 5, h.Len())

		require.NoError(t, h.BulkLoad(mkCandles(3, base.Add(time.Hour))))
		assert.Equal(t, 3, h.Len())

		last, ok := h.Last()
		require.True(t, ok)
		assert.Equal(t, base.Add(time.Hour+2*time.Minute), last.Time)
	})

	t.Run("rejects out-of-order candles", func(t *testing.T) {
		h := NewHistory(10)
		candles := mkCandles(3, base)
		candles[2].Time = candles[0].Time

		err := h.BulkLoad(candles)
		assert.ErrorIs(t, err, ErrInvalidData)
		assert.Equal(t, 0, h.Len())
	})

	t.Run("rejects non-numeric candles", func(t *testing.T) {
		h := NewHistory(10)
		candles := mkCandles(3, base)
		candles[1].Close = 0

		assert.ErrorIs(t, h.BulkLoad(candles), ErrInvalidData)
	})

	t.Run("oversized load keeps the tail", func(t *testing.T) {
		h := NewHistory(4)
		require.NoError(t, h.BulkLoad(mkCandles(10, base)))
		assert.Equal(t, 4, h.Len())

		snap := h.Snapshot()
		assert.Equal(t, base.Add(6*time.Minute), snap[0].Time)
		assert.Equal(t, base.Add(9*time.Minute), snap[3].Time)
	})
}

func TestHistoryAppendNeverExceedsCap(t *testing.T) {
	h := NewHistory(5)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range mkCandles(37, base) {
		h.Append(c)
		assert.LessOrEqual(t, h.Len(), 5, "append %d", i)
	}

	assert.Equal(t, 5, h.Len())

	// Oldest evicted first: window holds the last 5 candles in order.
	snap := h.Snapshot()
	require.Len(t, snap, 5)
	for i := 1; i < len(snap); i++ {
		assert.True(t, snap[i-1].Time.Before(snap[i].Time))
	}
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, base.Add(36*time.Minute), last.Time)
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(5)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.Append(mkCandles(1, base)[0])

	snap := h.Snapshot()
	snap[0].Close = 9999

	got, _ := h.Last()
	assert.Equal(t, 100.0, got.Close)
}

func TestFromTicker(t *testing.T) {
	tick := Ticker{Instrument: "BTC-USDT", Last: 42000, Volume: 12.5, Time: time.Now()}
	c := FromTicker(tick)

	assert.Equal(t, 42000.0, c.Open)
	assert.Equal(t, 42000.0, c.High)
	assert.Equal(t, 42000.0, c.Low)
	assert.Equal(t, 42000.0, c.Close)
	assert.Equal(t, 12.5, c.Volume)
	assert.True(t, c.Valid())
}

func TestSplitSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		quote  string
	}{
		{"BTC-USDT", "BTC", "USDT"},
		{"ETH-USDC", "ETH", "USDC"},
		{"DOGE", "DOGE", "USDT"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			base, quote := SplitSymbol(tt.symbol)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.quote, quote)
		})
	}
}

package market

import "fmt"

const (
	// DefaultCapacity caps the rolling price window.
	DefaultCapacity = 1000

	// MinSamples is the smallest window the indicator layer treats as
	// meaningful. Below this callers report "insufficient data", not an error.
	MinSamples = 50
)

// History is a bounded, append-only OHLCV window. When full, appending
// evicts the oldest candle. It is a ring buffer, so Append is O(1).
//
// History is not safe for concurrent use; the engine controller owns it
// under its single-writer discipline.
type History struct {
	buf   []Candle
	head  int // index of oldest candle
	count int
}

// NewHistory returns an empty history capped at capacity. A non-positive
// capacity falls back to DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{buf: make([]Candle, capacity)}
}

// Cap returns the window capacity.
func (h *History) Cap() int { return len(h.buf) }

// Len returns the number of candles currently held.
func (h *History) Len() int { return h.count }

// Sufficient reports whether the window holds enough samples for indicator
// computation.
func (h *History) Sufficient() bool { return h.count >= MinSamples }

// BulkLoad replaces the whole window with candles, which must be
// chronologically ascending and numerically valid. On failure the window is
// left unchanged and the error wraps ErrInvalidData.
func (h *History) BulkLoad(candles []Candle) error {
	for i, c := range candles {
		if !c.Valid() {
			return fmt.Errorf("%w: candle %d is not numeric", ErrInvalidData, i)
		}
		if i > 0 && !candles[i-1].Time.Before(c.Time) {
			return fmt.Errorf("%w: candles not chronologically ascending at %d", ErrInvalidData, i)
		}
	}

	h.head = 0
	h.count = 0
	for _, c := range candles {
		h.push(c)
	}
	return nil
}

// Append adds one candle, evicting the oldest when the window is full.
func (h *History) Append(c Candle) {
	h.push(c)
}

func (h *History) push(c Candle) {
	if h.count < len(h.buf) {
		h.buf[(h.head+h.count)%len(h.buf)] = c
		h.count++
		return
	}
	// Full: overwrite oldest and advance.
	h.buf[h.head] = c
	h.head = (h.head + 1) % len(h.buf)
}

// Last returns the most recent candle.
func (h *History) Last() (Candle, bool) {
	if h.count == 0 {
		return Candle{}, false
	}
	return h.buf[(h.head+h.count-1)%len(h.buf)], true
}

// Snapshot returns the window oldest-first as a fresh slice. Mutating the
// result does not affect the history.
func (h *History) Snapshot() []Candle {
	out := make([]Candle, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Closes returns the close series oldest-first.
func (h *History) Closes() []float64 {
	out := make([]float64, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)].Close
	}
	return out
}

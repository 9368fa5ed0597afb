package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHandleRecordsNothing(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.Tick(100)
	m.Signal(50)
	m.Trade("buy")
	m.FetchError("timeout")
	m.Position(1)
	m.Profit(10)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Tick(43250.5)
	m.Trade("buy")
	m.Trade("sell")
	m.FetchError("rate_limited")
	m.Signal(72)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tradebot_price_updates_total 1")
	assert.Contains(t, body, `tradebot_trades_total{side="buy"} 1`)
	assert.Contains(t, body, `tradebot_trades_total{side="sell"} 1`)
	assert.Contains(t, body, `tradebot_exchange_errors_total{kind="rate_limited"} 1`)
	assert.Contains(t, body, "tradebot_last_price 43250.5")
	assert.Contains(t, body, "tradebot_signal_confidence 72")
}

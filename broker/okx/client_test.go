package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/broker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("BTC-USDT", Config{
		APIKey:     "k",
		SecretKey:  "s",
		Passphrase: "p",
		BaseURL:    srv.URL,
	})
}

func jsonReply(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func TestFetchTicker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/ticker", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.NotEmpty(t, r.Header.Get("OK-ACCESS-SIGN"))
		jsonReply(w, `{"code":"0","msg":"","data":[{
			"instId":"BTC-USDT","last":"43250.5","bidPx":"43250.0","askPx":"43251.0",
			"high24h":"44000","low24h":"42000","open24h":"42500","vol24h":"1234.5",
			"ts":"1700000000000"}]}`)
	})

	tk, err := c.FetchTicker(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", tk.Instrument)
	assert.Equal(t, 43250.5, tk.Last)
	assert.Equal(t, 43250.0, tk.Bid)
	assert.Equal(t, 43251.0, tk.Ask)
	assert.Equal(t, time.UnixMilli(1700000000000), tk.Time)
}

func TestFetchCandlesReversesToAscending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1m", r.URL.Query().Get("bar"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		// Newest first on the wire.
		jsonReply(w, `{"code":"0","data":[
			["1700000120000","103","104","102","103.5","10","0","0","1"],
			["1700000060000","102","103","101","102.5","11","0","0","1"],
			["1700000000000","101","102","100","101.5","12","0","0","1"]]}`)
	})

	candles, err := c.FetchCandles(context.Background(), "BTC-USDT", "1m", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, 101.5, candles[0].Close)
	assert.Equal(t, 103.5, candles[2].Close)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
	assert.True(t, candles[1].Time.Before(candles[2].Time))
}

func TestFetchCandlesEmptyReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(w, `{"code":"0","data":[]}`)
	})

	_, err := c.FetchCandles(context.Background(), "", "1m", 100)
	assert.ErrorIs(t, err, broker.ErrInvalidData)
}

func TestRateLimitHTMLPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("<html>error code: 1016</html>"))
	})

	_, err := c.FetchTicker(context.Background())
	var apiErr *broker.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1016, apiErr.Code)
	assert.True(t, broker.IsRateLimited(err))
}

func TestEnvelopeErrorCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
	})

	_, err := c.FetchTicker(context.Background())
	var apiErr *broker.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 51001, apiErr.Code)
	assert.False(t, broker.IsRateLimited(err))
}

func TestMalformedJSONIsParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(w, `{"code":"0","data":[{`)
	})

	_, err := c.FetchTicker(context.Background())
	assert.ErrorIs(t, err, broker.ErrParse)
}

func TestNonJSONWithoutCodeIsInvalidResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>service unavailable</html>"))
	})

	_, err := c.FetchTicker(context.Background())
	assert.ErrorIs(t, err, broker.ErrInvalidResponse)
}

func TestTimeoutMapsToErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := New("BTC-USDT", Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})

	_, err := c.FetchTicker(context.Background())
	assert.ErrorIs(t, err, broker.ErrTimeout)
}

func TestConnectionRefusedMapsToErrNetwork(t *testing.T) {
	c := New("BTC-USDT", Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := c.FetchTicker(context.Background())
	assert.ErrorIs(t, err, broker.ErrNetwork)
}

func TestAccountBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/account/balance", r.URL.Path)
		jsonReply(w, `{"code":"0","data":[{"details":[
			{"ccy":"USDT","cashBal":"1000","availBal":"900","frozenBal":"100"},
			{"ccy":"BTC","cashBal":"0.5","availBal":"0.5","frozenBal":"0"}]}]}`)
	})

	acct, err := c.AccountBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, acct.Known())
	assert.Equal(t, 900.0, acct.Free("USDT"))
	assert.Equal(t, 0.5, acct.Free("BTC"))
	assert.Equal(t, 100.0, acct.Balances["USDT"].Used)
}

func TestPositionsFlat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(w, `{"code":"0","data":[]}`)
	})

	pos, err := c.Positions(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestPositionsOpen(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(w, `{"code":"0","data":[
			{"instId":"BTC-USDT","pos":"0.25","avgPx":"43000","cTime":"1700000000000"}]}`)
	})

	pos, err := c.Positions(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 0.25, pos.Size)
	assert.Equal(t, 43000.0, pos.AvgPrice)
}

func TestPlaceOrder(t *testing.T) {
	sl, tp := 42000.0, 44000.0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v5/trade/order", r.URL.Path)
		jsonReply(w, `{"code":"0","data":[{"ordId":"112233","sCode":"0","sMsg":""}]}`)
	})

	fill, err := c.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol:     "BTC-USDT",
		Side:       broker.SideBuy,
		Size:       0.01,
		Type:       broker.TypeMarket,
		StopLoss:   &sl,
		TakeProfit: &tp,
	})
	require.NoError(t, err)
	assert.Equal(t, "112233", fill.OrderID)
	assert.Equal(t, broker.SideBuy, fill.Side)
	assert.Nil(t, fill.RealizedPL)
}

func TestPlaceOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(w, `{"code":"0","data":[{"ordId":"","sCode":"51008","sMsg":"Insufficient balance"}]}`)
	})

	_, err := c.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "BTC-USDT", Side: broker.SideBuy, Size: 1, Type: broker.TypeMarket,
	})
	var apiErr *broker.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 51008, apiErr.Code)
}

func TestSignHeadersStable(t *testing.T) {
	c := New("BTC-USDT", Config{APIKey: "key", SecretKey: "secret", Passphrase: "pass"})
	h := c.sign("GET", "/api/v5/account/balance", "")
	assert.Equal(t, "key", h["OK-ACCESS-KEY"])
	assert.Equal(t, "pass", h["OK-ACCESS-PASSPHRASE"])
	assert.NotEmpty(t, h["OK-ACCESS-SIGN"])
	assert.NotEmpty(t, h["OK-ACCESS-TIMESTAMP"])
}

package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// wsServer runs handler for every websocket connection made to the
// returned URL.
func wsServer(t *testing.T, handler func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamSubscribesAndDelivers(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var sub subscribeOp
		require.NoError(t, json.Unmarshal(raw, &sub))
		assert.Equal(t, "subscribe", sub.Op)
		require.Len(t, sub.Args, 1)
		assert.Equal(t, "tickers", sub.Args[0].Channel)
		assert.Equal(t, "BTC-USDT", sub.Args[0].InstID)

		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[
				{"instId":"BTC-USDT","last":"43000.5","bidPx":"43000","askPx":"43001","ts":"1700000000000"}]}`))

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewTickerStream(url, "BTC-USDT", nil)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case tk := <-s.Tickers():
		assert.Equal(t, "BTC-USDT", tk.Instrument)
		assert.Equal(t, 43000.5, tk.Last)
		assert.Equal(t, 43000.0, tk.Bid)
		assert.Equal(t, time.UnixMilli(1700000000000), tk.Time)
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker delivered")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestStreamSkipsMalformedFrames(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // subscribe
		conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"data":[{"instId":"BTC-USDT","last":"nonsense","ts":"x"}]}`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"data":[{"instId":"BTC-USDT","last":"100","bidPx":"99","askPx":"101","ts":"1700000000000"}]}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewTickerStream(url, "BTC-USDT", nil)
	go s.Run(ctx)

	select {
	case tk := <-s.Tickers():
		// Only the well-formed quote survives.
		assert.Equal(t, 100.0, tk.Last)
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker delivered")
	}
}

func TestStreamReconnects(t *testing.T) {
	var sessions int
	url := wsServer(t, func(conn *websocket.Conn) {
		sessions++
		conn.ReadMessage() // subscribe
		if sessions == 1 {
			return // drop the first connection straight away
		}
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"data":[{"instId":"BTC-USDT","last":"200","bidPx":"199","askPx":"201","ts":"1700000000000"}]}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewTickerStream(url, "BTC-USDT", nil)
	go s.Run(ctx)

	select {
	case tk := <-s.Tickers():
		assert.Equal(t, 200.0, tk.Last)
	case <-time.After(5 * time.Second):
		t.Fatal("stream never recovered")
	}
}

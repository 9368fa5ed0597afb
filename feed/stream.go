package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/market"
)

// DefaultStreamURL is the OKX public websocket endpoint.
const DefaultStreamURL = "wss://ws.okx.com:8443/ws/v5/public"

const (
	pingInterval   = 20 * time.Second
	readDeadline   = 30 * time.Second
	reconnectBase  = time.Second
	reconnectLimit = time.Minute
)

// TickerStream subscribes to the tickers channel for one instrument and
// delivers parsed quotes. Dropped connections reconnect with exponential
// backoff; malformed frames are skipped, never fatal.
type TickerStream struct {
	url    string
	symbol string
	log    *zap.Logger
	out    chan market.Ticker
}

// NewTickerStream builds a stream for symbol. An empty url uses the public
// OKX endpoint; tests point it at a local server.
func NewTickerStream(url, symbol string, log *zap.Logger) *TickerStream {
	if url == "" {
		url = DefaultStreamURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TickerStream{
		url:    url,
		symbol: symbol,
		log:    log.Named("stream").With(zap.String("symbol", symbol)),
		out:    make(chan market.Ticker, 16),
	}
}

// Tickers is the delivery channel. Closed when Run returns.
func (s *TickerStream) Tickers() <-chan market.Ticker { return s.out }

// Run connects, subscribes and pumps quotes until ctx is cancelled.
func (s *TickerStream) Run(ctx context.Context) error {
	defer close(s.out)

	backoff := reconnectBase
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("stream disconnected, reconnecting",
			zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectLimit {
			backoff = reconnectLimit
		}
	}
}

type subscribeOp struct {
	Op   string `json:"op"`
	Args []struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"args"`
}

type streamFrame struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
	Data  []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		BidPx  string `json:"bidPx"`
		AskPx  string `json:"askPx"`
		TS     string `json:"ts"`
	} `json:"data"`
}

// session runs one connection to exhaustion.
func (s *TickerStream) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := subscribeOp{Op: "subscribe"}
	sub.Args = append(sub.Args, struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}{Channel: "tickers", InstID: s.symbol})
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	// The venue drops connections idle for 30s; ping keeps it alive and a
	// cancelled context tears it down so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if string(raw) == "pong" {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Debug("skipping malformed frame", zap.Error(err))
			continue
		}
		if frame.Event == "error" {
			s.log.Warn("subscription error", zap.String("msg", frame.Msg))
			continue
		}

		for _, d := range frame.Data {
			tk, ok := parseStreamTicker(d.InstID, d.Last, d.BidPx, d.AskPx, d.TS)
			if !ok {
				continue
			}
			select {
			case s.out <- tk:
			default:
				// The consumer lags, drop the oldest quote for the fresh one.
				select {
				case <-s.out:
				default:
				}
				s.out <- tk
			}
		}
	}
}

func parseStreamTicker(instID, last, bid, ask, ts string) (market.Ticker, bool) {
	lastPx, err := strconv.ParseFloat(last, 64)
	if err != nil || lastPx <= 0 {
		return market.Ticker{}, false
	}
	tk := market.Ticker{Instrument: instID, Last: lastPx, Time: time.Now()}
	tk.Bid, _ = strconv.ParseFloat(bid, 64)
	tk.Ask, _ = strconv.ParseFloat(ask, 64)
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		tk.Time = time.UnixMilli(ms)
	}
	return tk, true
}

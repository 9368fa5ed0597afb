package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/market"
)

type wireTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
	High   string `json:"high24h"`
	Low    string `json:"low24h"`
	Open   string `json:"open24h"`
	Vol    string `json:"vol24h"`
	TS     string `json:"ts"`
}

// FetchTicker returns the current market snapshot for the configured
// instrument.
func (c *Client) FetchTicker(ctx context.Context) (market.Ticker, error) {
	path := "/api/v5/market/ticker?instId=" + url.QueryEscape(c.symbol)
	data, err := c.do(ctx, "GET", path, "")
	if err != nil {
		return market.Ticker{}, err
	}

	var rows []wireTicker
	if err := json.Unmarshal(data, &rows); err != nil {
		return market.Ticker{}, fmt.Errorf("%w: ticker: %v", broker.ErrParse, err)
	}
	if len(rows) == 0 {
		return market.Ticker{}, fmt.Errorf("%w: empty ticker reply", broker.ErrInvalidData)
	}
	r := rows[0]

	var t market.Ticker
	t.Instrument = r.InstID
	if t.Last, err = parseF(r.Last); err != nil {
		return market.Ticker{}, fmt.Errorf("%w: last %q", broker.ErrInvalidData, r.Last)
	}
	t.Bid, _ = parseF(r.BidPx)
	t.Ask, _ = parseF(r.AskPx)
	t.High24, _ = parseF(r.High)
	t.Low24, _ = parseF(r.Low)
	t.Open24, _ = parseF(r.Open)
	t.Volume, _ = parseF(r.Vol)
	if ms, perr := strconv.ParseInt(r.TS, 10, 64); perr == nil {
		t.Time = time.UnixMilli(ms)
	} else {
		t.Time = time.Now()
	}
	if t.Last <= 0 {
		return market.Ticker{}, fmt.Errorf("%w: non-positive last price", broker.ErrInvalidData)
	}
	return t, nil
}

// FetchCandles returns up to limit recent candles at the given bar interval,
// oldest first. The wire order is newest first and gets reversed here.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if symbol == "" {
		symbol = c.symbol
	}
	if interval == "" {
		interval = "1m"
	}
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		url.QueryEscape(symbol), url.QueryEscape(interval), limit)

	data, err := c.do(ctx, "GET", path, "")
	if err != nil {
		return nil, err
	}

	// Each row is [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: candles: %v", broker.ErrParse, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty candle reply", broker.ErrInvalidData)
	}

	candles := make([]market.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: short candle row", broker.ErrInvalidData)
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: candle timestamp %q", broker.ErrInvalidData, row[0])
		}
		var cl market.Candle
		cl.Time = time.UnixMilli(ms)
		fields := []*float64{&cl.Open, &cl.High, &cl.Low, &cl.Close, &cl.Volume}
		for j, dst := range fields {
			v, err := parseF(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("%w: candle field %q", broker.ErrInvalidData, row[j+1])
			}
			*dst = v
		}
		if !cl.Valid() {
			return nil, fmt.Errorf("%w: candle at %s", broker.ErrInvalidData, cl.Time)
		}
		candles = append(candles, cl)
	}
	return candles, nil
}

// Package broker defines the uniform exchange gateway consumed by the
// engine controller, shared order types, and the wire error taxonomy. Two
// backends implement the gateway: broker/sim (in-memory ledger) and
// broker/okx (live OKX v5 REST).
package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/risk"
)

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the execution style. Only market orders are used by the
// engine today.
type OrderType string

const (
	TypeMarket OrderType = "market"
	TypeLimit  OrderType = "limit"
)

// OrderRequest describes one order to place. Guard prices are optional and
// attached so the backend can register protective exits where supported.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Size       float64
	Type       OrderType
	StopLoss   *float64
	TakeProfit *float64
}

// Fill confirms an executed order. RealizedPL is set by the simulated
// backend when a SELL closes a round trip; live fills leave it nil and the
// caller computes PnL from its own position state.
type Fill struct {
	OrderID    string
	Side       Side
	Size       float64
	Price      float64
	Time       time.Time
	RealizedPL *float64
}

// ExchangeGateway is the uniform backend interface. All calls take a
// context; the engine awaits each to completion before the next state
// mutation (single-writer discipline).
type ExchangeGateway interface {
	// FetchTicker returns the current quote for the gateway's symbol.
	FetchTicker(ctx context.Context) (market.Ticker, error)

	// FetchCandles returns up to limit OHLCV candles for the symbol at the
	// given interval, chronologically ascending.
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)

	// AccountBalance returns the per-currency account snapshot.
	AccountBalance(ctx context.Context) (market.Account, error)

	// Positions returns the open position for symbol, nil when flat.
	Positions(ctx context.Context, symbol string) (*risk.Position, error)

	// PlaceOrder executes an order and returns the fill.
	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
}

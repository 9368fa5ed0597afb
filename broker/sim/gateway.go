// Package sim implements the exchange gateway against an in-memory ledger.
// It fills orders instantly at the current mark price, keeps per-currency
// balances, and synthesizes ticker and candle data with a bounded random
// walk so the engine can run fully offline.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/internal/id"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/risk"
)

// DefaultStartPrice seeds the random walk when no start price is given.
const DefaultStartPrice = 40000.0

// Gateway is the simulated backend. Safe for concurrent use, though the
// engine serializes its calls anyway.
type Gateway struct {
	mu     sync.Mutex
	symbol string
	base   string
	quote  string

	balances map[string]market.Balance
	pos      *risk.Position
	last     float64
	rng      *rand.Rand

	wins   int
	losses int
}

// New returns a simulated gateway holding balance units of the symbol's
// quote currency, with the mark price starting at startPrice.
func New(symbol string, balance, startPrice float64) *Gateway {
	if startPrice <= 0 {
		startPrice = DefaultStartPrice
	}
	base, quote := market.SplitSymbol(symbol)
	return &Gateway{
		symbol: symbol,
		base:   base,
		quote:  quote,
		balances: map[string]market.Balance{
			quote: {Total: balance, Free: balance},
		},
		last: startPrice,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetPrice pins the mark price. Used by tests and replay drivers.
func (g *Gateway) SetPrice(px float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if px > 0 {
		g.last = px
	}
}

// Record reports the win/loss tally of closed round trips.
func (g *Gateway) Record() (wins, losses int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wins, g.losses
}

// FetchTicker advances the random walk one step and returns the quote.
func (g *Gateway) FetchTicker(ctx context.Context) (market.Ticker, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Bounded step: +/-0.1% per tick.
	g.last *= 1 + (g.rng.Float64()-0.5)*0.002
	spread := g.last * 0.0001

	return market.Ticker{
		Instrument: g.symbol,
		Last:       g.last,
		Bid:        g.last - spread,
		Ask:        g.last + spread,
		High24:     g.last * 1.01,
		Low24:      g.last * 0.99,
		Open24:     g.last,
		Volume:     100 + g.rng.Float64()*50,
		Time:       time.Now(),
	}, nil
}

// FetchCandles synthesizes an ascending candle series ending at the current
// mark price.
func (g *Gateway) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	step, err := IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	candles := Seed(g.last, limit, step, g.rng)
	if n := len(candles); n > 0 {
		g.last = candles[n-1].Close
	}
	return candles, nil
}

// AccountBalance returns a copy of the ledger stamped now.
func (g *Gateway) AccountBalance(ctx context.Context) (market.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	acct := market.NewAccount()
	for ccy, b := range g.balances {
		acct.Balances[ccy] = b
	}
	return acct, nil
}

// Positions returns a copy of the open position, nil when flat.
func (g *Gateway) Positions(ctx context.Context, symbol string) (*risk.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.pos.Open() || symbol != g.symbol {
		return nil, nil
	}
	cp := *g.pos
	return &cp, nil
}

// PlaceOrder fills at the current mark price. A BUY whose cost exceeds the
// free quote balance is rejected with the exchange's insufficient-balance
// code rather than driving the ledger negative.
func (g *Gateway) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if req.Size <= 0 {
		return broker.Fill{}, fmt.Errorf("%w: non-positive order size", broker.ErrInvalidData)
	}
	if req.Type == broker.TypeLimit {
		// The ledger has no resting book, everything fills at mark.
		return broker.Fill{}, &broker.APIError{Code: 51000, Msg: "limit orders not supported in simulation"}
	}

	switch req.Side {
	case broker.SideBuy:
		return g.fillBuy(req)
	case broker.SideSell:
		return g.fillSell(req)
	}
	return broker.Fill{}, fmt.Errorf("%w: unknown side %q", broker.ErrInvalidData, req.Side)
}

func (g *Gateway) fillBuy(req broker.OrderRequest) (broker.Fill, error) {
	price := g.last
	cost := req.Size * price

	quote := g.balances[g.quote]
	if cost > quote.Free {
		return broker.Fill{}, &broker.APIError{Code: 51008, Msg: "insufficient balance"}
	}

	quote.Free -= cost
	quote.Total -= cost
	g.balances[g.quote] = quote

	base := g.balances[g.base]
	base.Free += req.Size
	base.Total += req.Size
	g.balances[g.base] = base

	now := time.Now()
	if g.pos.Open() {
		// Average into the existing position.
		total := g.pos.Size + req.Size
		g.pos.AvgPrice = (g.pos.AvgPrice*g.pos.Size + price*req.Size) / total
		g.pos.Size = total
	} else {
		g.pos = &risk.Position{
			Symbol:   g.symbol,
			Size:     req.Size,
			AvgPrice: price,
			OpenedAt: now,
		}
	}
	g.pos.StopLoss = req.StopLoss
	g.pos.TakeProfit = req.TakeProfit

	return broker.Fill{
		OrderID: id.New(),
		Side:    broker.SideBuy,
		Size:    req.Size,
		Price:   price,
		Time:    now,
	}, nil
}

func (g *Gateway) fillSell(req broker.OrderRequest) (broker.Fill, error) {
	if !g.pos.Open() {
		return broker.Fill{}, &broker.APIError{Code: 51169, Msg: "no open position to sell"}
	}

	price := g.last
	size := req.Size
	if size > g.pos.Size {
		size = g.pos.Size
	}

	proceeds := size * price
	quote := g.balances[g.quote]
	quote.Free += proceeds
	quote.Total += proceeds
	g.balances[g.quote] = quote

	base := g.balances[g.base]
	base.Free -= size
	base.Total -= size
	g.balances[g.base] = base

	pl := risk.RealizedPL(g.pos.AvgPrice, price, size)
	if pl >= 0 {
		g.wins++
	} else {
		g.losses++
	}

	g.pos.Size -= size
	if g.pos.Size <= 0 {
		g.pos = nil
	}

	return broker.Fill{
		OrderID:    id.New(),
		Side:       broker.SideSell,
		Size:       size,
		Price:      price,
		Time:       time.Now(),
		RealizedPL: &pl,
	}, nil
}

package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/internal/id"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/strategies"
)

// accountMaxAge bounds how stale the balance snapshot may get before a
// cycle refreshes it.
const accountMaxAge = 5 * time.Minute

// UpdatePriceData runs one full cycle: fetch the quote, append it to the
// window, recompute indicators, run guard monitoring and then the strategy,
// and execute whatever decision falls out. A fetch failure is transient:
// the error is returned, the engine stays RUNNING and the caller retries on
// its schedule.
func (c *Controller) UpdatePriceData(ctx context.Context) error {
	if c.State() != Running {
		return ErrNotRunning
	}

	tk, err := c.gw.FetchTicker(ctx)
	if err != nil {
		c.met.FetchError(errKind(err))
		if broker.IsTransient(err) || broker.IsRateLimited(err) {
			c.log.Warn("price update failed", zap.Error(err))
		} else {
			c.log.Error("price update failed", zap.Error(err))
		}
		return err
	}

	return c.processTicker(ctx, tk)
}

// ApplyTicker runs one cycle on a quote pushed from a stream instead of
// fetched by the controller itself.
func (c *Controller) ApplyTicker(ctx context.Context, tk market.Ticker) error {
	if tk.Last <= 0 {
		return broker.ErrInvalidData
	}
	return c.processTicker(ctx, tk)
}

// refreshAccount re-fetches the balance snapshot when it was never loaded
// or has gone stale. A balance fetch that failed during Start heals here on
// a later cycle instead of disabling sizing for the life of the process.
func (c *Controller) refreshAccount(ctx context.Context) {
	c.mu.Lock()
	fresh := c.acct.Known() && c.acct.Age() <= accountMaxAge
	c.mu.Unlock()
	if fresh {
		return
	}

	acct, err := c.gw.AccountBalance(ctx)
	if err != nil {
		c.met.FetchError(errKind(err))
		c.log.Warn("balance refresh failed", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.acct = acct
	c.mu.Unlock()
}

func (c *Controller) processTicker(ctx context.Context, tk market.Ticker) error {
	c.refreshAccount(ctx)

	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.hist.Append(market.FromTicker(tk))
	c.lastPrice = tk.Last
	c.set = indicators.Compute(c.hist.Snapshot())
	c.met.Tick(tk.Last)
	c.log.Debug("tick",
		zap.Float64("price", tk.Last),
		zap.Float64("spread", tk.Spread()))

	// Guard monitoring runs before strategy evaluation and preempts it.
	// The bid/ask midpoint is the mark; with one-sided quotes it falls
	// back to the last trade.
	if exit, hit := c.riskMgr.Monitor(c.pos, tk.Mid()); hit {
		sig := strategies.Signal{
			Action:     strategies.Sell,
			Reason:     exit.String(),
			Confidence: 100,
		}
		c.lastSignal = sig
		c.mu.Unlock()
		c.log.Info("guard exit", zap.String("reason", string(exit.Reason)),
			zap.Float64("unrealized_pct", exit.UnrealizedPercent))
		return c.ExecuteTrade(ctx, sig)
	}

	sig := strategies.Evaluate(c.cfg.Strategy, c.set, c.cfg.Strategies)
	c.lastSignal = sig
	c.mu.Unlock()

	c.met.Signal(sig.Confidence)
	if sig.Action == strategies.Hold {
		return nil
	}
	return c.ExecuteTrade(ctx, sig)
}

// CalculateSignal evaluates the configured strategy against the current
// indicator set without side effects.
func (c *Controller) CalculateSignal() strategies.Signal {
	c.mu.Lock()
	set := c.set
	c.mu.Unlock()
	return strategies.Evaluate(c.cfg.Strategy, set, c.cfg.Strategies)
}

// ExecuteTrade turns a signal into an order. BUY requires a flat book and a
// sized order above the minimum lot; SELL requires an open position and
// closes all of it. Order placement failures leave the engine RUNNING. A
// fill that lands after Stop is still recorded so the ledger matches the
// exchange, but triggers no follow-on work.
func (c *Controller) ExecuteTrade(ctx context.Context, sig strategies.Signal) error {
	c.mu.Lock()

	if c.state != Running {
		c.mu.Unlock()
		return ErrNotRunning
	}

	var req broker.OrderRequest
	switch sig.Action {
	case strategies.Buy:
		if c.pos.Open() {
			c.mu.Unlock()
			c.log.Debug("buy skipped, position already open")
			return nil
		}
		_, quote := market.SplitSymbol(c.cfg.Symbol)
		size := c.riskMgr.OrderSize(c.lastPrice, c.acct.Free(quote), c.acct, quote)
		if size <= 0 {
			c.mu.Unlock()
			c.log.Warn("buy skipped, cannot size order",
				zap.Float64("price", c.lastPrice),
				zap.Bool("account_known", c.acct.Known()))
			return nil
		}
		scratch := risk.Position{Symbol: c.cfg.Symbol}
		c.riskMgr.OnOpen(&scratch, c.lastPrice, size, time.Now())
		req = broker.OrderRequest{
			Symbol:     c.cfg.Symbol,
			Side:       broker.SideBuy,
			Size:       size,
			Type:       broker.TypeMarket,
			StopLoss:   scratch.StopLoss,
			TakeProfit: scratch.TakeProfit,
		}

	case strategies.Sell:
		if !c.pos.Open() {
			c.mu.Unlock()
			c.log.Debug("sell skipped, no open position")
			return nil
		}
		req = broker.OrderRequest{
			Symbol: c.cfg.Symbol,
			Side:   broker.SideSell,
			Size:   c.pos.Size,
			Type:   broker.TypeMarket,
		}

	default:
		c.mu.Unlock()
		return nil
	}

	price := c.lastPrice
	c.mu.Unlock()

	fill, err := c.gw.PlaceOrder(ctx, req)
	if err != nil {
		c.met.FetchError(errKind(err))
		var apiErr *broker.APIError
		if errors.As(err, &apiErr) {
			c.log.Error("order rejected", zap.Int("code", apiErr.Code),
				zap.String("side", string(req.Side)), zap.Error(err))
		} else {
			c.log.Error("order failed", zap.String("side", string(req.Side)), zap.Error(err))
		}
		return err
	}

	c.mu.Lock()
	if fill.Price <= 0 {
		// Live market order acks carry no price; record at the quote the
		// decision was made on.
		fill.Price = price
	}
	c.applyFill(req, fill, sig)
	running := c.state == Running
	c.mu.Unlock()

	if !running {
		// A fill that lands after Stop still goes in the ledger, but gets
		// no follow-on work.
		c.log.Warn("fill recorded after stop", zap.String("order_id", fill.OrderID))
		return nil
	}

	// Refresh the account so the next sizing pass sees the post-trade
	// balance. Best effort, the stale snapshot stays on failure.
	if acct, err := c.gw.AccountBalance(ctx); err != nil {
		c.met.FetchError(errKind(err))
		c.log.Warn("balance refresh failed", zap.Error(err))
	} else {
		c.mu.Lock()
		c.acct = acct
		c.mu.Unlock()
	}
	return nil
}

// applyFill commits a confirmed fill: position, stats and trade ledger.
// Caller holds the mutex.
func (c *Controller) applyFill(req broker.OrderRequest, fill broker.Fill, sig strategies.Signal) {
	trade := Trade{
		ID:         id.New(),
		Time:       fill.Time,
		Side:       fill.Side,
		Price:      fill.Price,
		Size:       fill.Size,
		Reason:     sig.Reason,
		Confidence: sig.Confidence,
	}

	switch fill.Side {
	case broker.SideBuy:
		pos := &risk.Position{Symbol: req.Symbol}
		c.riskMgr.OnOpen(pos, fill.Price, fill.Size, fill.Time)
		pos.StopLoss = req.StopLoss
		pos.TakeProfit = req.TakeProfit
		c.pos = pos
		c.met.Position(pos.Size)

	case broker.SideSell:
		pl := risk.RealizedPL(c.pos.AvgPrice, fill.Price, fill.Size)
		if fill.RealizedPL != nil {
			pl = *fill.RealizedPL
		}
		trade.RealizedPL = &pl
		c.stats.TotalProfit += pl
		if pl >= 0 {
			c.stats.WinningTrades++
		} else {
			c.stats.LosingTrades++
		}
		c.pos = nil
		c.met.Position(0)
		c.met.Profit(c.stats.TotalProfit)
	}

	c.stats.TotalTrades++
	c.trades = append(c.trades, trade)
	c.met.Trade(string(fill.Side))

	c.log.Info("trade executed",
		zap.String("id", trade.ID),
		zap.String("side", string(fill.Side)),
		zap.Float64("price", fill.Price),
		zap.Float64("size", fill.Size),
		zap.Float64("confidence", sig.Confidence),
		zap.String("reason", sig.Reason))
}

// errKind buckets an exchange error for the failure counter.
func errKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case broker.IsRateLimited(err):
		return "rate_limited"
	case errors.Is(err, broker.ErrTimeout):
		return "timeout"
	case errors.Is(err, broker.ErrNetwork):
		return "network"
	case errors.Is(err, broker.ErrParse):
		return "parse"
	case errors.Is(err, broker.ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, broker.ErrInvalidData):
		return "invalid_data"
	default:
		var apiErr *broker.APIError
		if errors.As(err, &apiErr) {
			return "api"
		}
		return "other"
	}
}

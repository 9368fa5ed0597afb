// Package engine hosts the trading controller: a single-symbol state
// machine that loads price history, recomputes indicators on every update,
// runs the configured strategy and executes the resulting orders through an
// exchange gateway. All state mutation happens under one mutex so a cycle
// is never interleaved with another writer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/broker/sim"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/metrics"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/strategies"
)

// State is the controller lifecycle phase.
type State string

const (
	Stopped      State = "STOPPED"
	Initializing State = "INITIALIZING"
	Running      State = "RUNNING"
)

var (
	ErrAlreadyStarted = errors.New("engine already started")
	ErrNotRunning     = errors.New("engine not running")
)

// Config carries the controller parameters. Strategy is a name resolved by
// the strategies package; an unknown name evaluates to HOLD rather than
// failing startup, so a typo shows up in the signal reason.
type Config struct {
	Symbol   string
	Strategy string
	Interval string
	Limit    int

	Strategies strategies.Config
	Risk       risk.Config
}

func (c *Config) defaults() {
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.Limit <= 0 {
		c.Limit = 500
	}
}

// Stats is the running trade tally.
type Stats struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	TotalProfit   float64 `json:"totalProfit"`
}

// Trade is one executed order as recorded by the controller.
type Trade struct {
	ID         string      `json:"id"`
	Time       time.Time   `json:"time"`
	Side       broker.Side `json:"side"`
	Price      float64     `json:"price"`
	Size       float64     `json:"size"`
	Reason     string      `json:"reason"`
	Confidence float64     `json:"confidence"`
	RealizedPL *float64    `json:"realizedPL,omitempty"`
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	State      State             `json:"state"`
	Symbol     string            `json:"symbol"`
	Strategy   string            `json:"strategy"`
	Samples    int               `json:"samples"`
	LastPrice  float64           `json:"lastPrice"`
	LastSignal strategies.Signal `json:"lastSignal"`
	Indicators []string          `json:"indicators"`
	Position   *risk.Position    `json:"position,omitempty"`
	Stats      Stats             `json:"stats"`
}

// Controller drives the decision and execution cycle for one symbol.
type Controller struct {
	mu sync.Mutex

	cfg     Config
	gw      broker.ExchangeGateway
	riskMgr *risk.Manager
	log     *zap.Logger
	met     *metrics.Metrics

	state      State
	hist       *market.History
	set        *indicators.Set
	acct       market.Account
	pos        *risk.Position
	lastPrice  float64
	lastSignal strategies.Signal
	trades     []Trade
	stats      Stats
}

// New wires a controller to a gateway. A nil logger logs nowhere, a nil
// metrics handle records nothing.
func New(cfg Config, gw broker.ExchangeGateway, log *zap.Logger, met *metrics.Metrics) *Controller {
	cfg.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:     cfg,
		gw:      gw,
		riskMgr: risk.NewManager(cfg.Risk),
		log:     log.Named("engine").With(zap.String("symbol", cfg.Symbol)),
		met:     met,
		state:   Stopped,
		hist:    market.NewHistory(market.DefaultCapacity),
	}
}

// Start moves STOPPED to INITIALIZING, loads seed history, account and
// position state, and arrives at RUNNING. A rate-limited history fetch
// falls back to synthetic seed data around the current quote so the
// controller still starts; any other history failure aborts back to
// STOPPED.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Stopped {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = Initializing
	c.mu.Unlock()

	c.log.Info("starting",
		zap.String("strategy", c.cfg.Strategy),
		zap.String("interval", c.cfg.Interval),
		zap.Int("limit", c.cfg.Limit))

	if acct, err := c.gw.AccountBalance(ctx); err != nil {
		c.met.FetchError(errKind(err))
		c.log.Warn("balance fetch failed, sizing disabled until refresh", zap.Error(err))
	} else {
		c.mu.Lock()
		c.acct = acct
		c.mu.Unlock()
	}

	var last float64
	if tk, err := c.gw.FetchTicker(ctx); err != nil {
		c.met.FetchError(errKind(err))
		c.log.Warn("ticker fetch failed during init", zap.Error(err))
	} else {
		last = tk.Last
	}

	candles, err := c.gw.FetchCandles(ctx, c.cfg.Symbol, c.cfg.Interval, c.cfg.Limit)
	if err != nil {
		if !broker.IsRateLimited(err) {
			c.fail()
			return fmt.Errorf("history load: %w", err)
		}
		c.met.FetchError(errKind(err))
		c.log.Warn("history fetch rate limited, seeding synthetic candles", zap.Error(err))
		step, _ := sim.IntervalDuration(c.cfg.Interval)
		start := last
		if start <= 0 {
			c.fail()
			return fmt.Errorf("history load: %w", err)
		}
		candles = sim.Seed(start, c.cfg.Limit, step, rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	c.mu.Lock()
	if err := c.hist.BulkLoad(candles); err != nil {
		c.state = Stopped
		c.mu.Unlock()
		return fmt.Errorf("history load: %w", err)
	}
	if lastCandle, ok := c.hist.Last(); ok {
		c.lastPrice = lastCandle.Close
	}
	c.set = indicators.Compute(c.hist.Snapshot())
	c.mu.Unlock()

	pos, err := c.gw.Positions(ctx, c.cfg.Symbol)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.met.FetchError(errKind(err))
		c.log.Warn("position fetch failed, assuming flat", zap.Error(err))
	} else {
		c.pos = pos
	}

	c.state = Running
	c.log.Info("running",
		zap.Int("samples", c.hist.Len()),
		zap.Float64("last_price", c.lastPrice),
		zap.Bool("position_open", c.pos.Open()))
	return nil
}

func (c *Controller) fail() {
	c.mu.Lock()
	c.state = Stopped
	c.mu.Unlock()
}

// Stop halts trading. Idempotent; an in-flight cycle finishes its current
// mutation and the next gate check observes the stop.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return
	}
	c.state = Stopped
	c.log.Info("stopped", zap.Int("trades", c.stats.TotalTrades),
		zap.Float64("total_profit", c.stats.TotalProfit))
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot safe to hand to callers.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:      c.state,
		Symbol:     c.cfg.Symbol,
		Strategy:   c.cfg.Strategy,
		Samples:    c.hist.Len(),
		LastPrice:  c.lastPrice,
		LastSignal: c.lastSignal,
		Stats:      c.stats,
	}
	if c.set != nil {
		st.Indicators = c.set.Names()
	}
	if c.pos.Open() {
		cp := *c.pos
		st.Position = &cp
	}
	return st
}

// TradeHistory returns a copy of the executed trades, oldest first.
func (c *Controller) TradeHistory() []Trade {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Trade, len(c.trades))
	copy(out, c.trades)
	return out
}

// Indicators returns the latest computed indicator set, nil before the
// first computation or while below the minimum sample count.
func (c *Controller) Indicators() *indicators.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set
}

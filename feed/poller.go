// Package feed schedules market data acquisition: a single-flight poller
// driving the engine's update cycle, and a websocket ticker stream for
// push-based quotes.
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/broker"
)

// DefaultInterval is the base polling cadence.
const DefaultInterval = 30 * time.Second

// MaxBackoff caps the rate-limit backoff growth.
const MaxBackoff = 10 * time.Minute

// Poller invokes a work function on a fixed cadence, one invocation at a
// time. A rate-limited error doubles the wait before the next attempt, up
// to MaxBackoff; any other outcome resets the cadence to the base interval.
// The next run is scheduled only after the current one returns, so a slow
// cycle never overlaps the next.
type Poller struct {
	interval time.Duration
	fn       func(context.Context) error
	log      *zap.Logger
}

// NewPoller builds a poller around fn. Interval defaults to
// DefaultInterval, a nil logger logs nowhere.
func NewPoller(interval time.Duration, fn func(context.Context) error, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{interval: interval, fn: fn, log: log.Named("poller")}
}

// Run polls until ctx is cancelled and returns the context's error. The
// first invocation happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	wait := time.Duration(0)
	backoff := p.interval

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		err := p.fn(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case broker.IsRateLimited(err):
			backoff *= 2
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			wait = backoff
			p.log.Warn("rate limited, backing off", zap.Duration("wait", wait))
		case err != nil:
			// Transient fault, keep the normal cadence and try again.
			backoff = p.interval
			wait = p.interval
			p.log.Warn("poll failed", zap.Error(err))
		default:
			backoff = p.interval
			wait = p.interval
		}

		timer.Reset(wait)
	}
}

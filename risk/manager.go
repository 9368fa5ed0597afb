package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradebot/market"
)

// MinLot is the smallest tradable quantity (BTC spot market minimum).
const MinLot = 0.001

// ExitReason tags a forced exit returned by Monitor.
type ExitReason string

const (
	StopLoss   ExitReason = "STOP_LOSS"
	TakeProfit ExitReason = "TAKE_PROFIT"
)

// Exit is a forced-exit directive. It takes precedence over any strategy
// signal; the engine converts it into a synthetic SELL at confidence 100.
type Exit struct {
	Reason            ExitReason
	UnrealizedPercent float64
}

func (e Exit) String() string {
	return fmt.Sprintf("%s at %+.2f%%", e.Reason, e.UnrealizedPercent)
}

// Guard configures one protective threshold as a percent move from entry.
type Guard struct {
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	Percent  float64 `json:"percent" yaml:"percent"`
	Trailing bool    `json:"trailing" yaml:"trailing"`
}

// Config carries the risk manager parameters.
type Config struct {
	// RiskPercent caps the quote spent per trade as a percent of the free
	// quote balance (2 means 2%).
	RiskPercent float64 `json:"risk_percent" yaml:"risk_percent"`

	StopLoss   Guard `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit Guard `json:"take_profit" yaml:"take_profit"`
}

// Manager sizes orders and watches the open position for guard breaches.
// It must run on every price update, before strategy evaluation.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) Config() Config { return m.cfg }

// OrderSize returns the quantity to buy at price given a quote-currency risk
// budget. The budget is capped at RiskPercent of the free quote balance, the
// result clamped to [MinLot, free/price]. An unknown account, a zero free
// balance, or a window narrower than MinLot all size to zero: callers must
// not trade on a zero quantity.
func (m *Manager) OrderSize(price, riskAmount float64, acct market.Account, quoteCurrency string) float64 {
	if price <= 0 || !acct.Known() {
		return 0
	}

	free := acct.Free(quoteCurrency)
	if free <= 0 {
		return 0
	}

	maxRisk := free * m.cfg.RiskPercent / 100
	if riskAmount > maxRisk {
		riskAmount = maxRisk
	}

	quantity := riskAmount / price
	maxQuantity := free / price

	if quantity > maxQuantity {
		quantity = maxQuantity
	}
	if quantity < MinLot {
		quantity = MinLot
	}
	if quantity > maxQuantity {
		// Even the minimum lot does not fit the balance.
		return 0
	}
	return quantity
}

// OnOpen stamps guard prices on a freshly opened long position, one per
// enabled guard: stop below entry, take-profit above.
func (m *Manager) OnOpen(pos *Position, entry, quantity float64, now time.Time) {
	pos.AvgPrice = entry
	pos.Size = quantity
	pos.OpenedAt = now

	if m.cfg.StopLoss.Enabled && m.cfg.StopLoss.Percent > 0 {
		stop := entry * (1 - m.cfg.StopLoss.Percent/100)
		pos.StopLoss = &stop
	}
	if m.cfg.TakeProfit.Enabled && m.cfg.TakeProfit.Percent > 0 {
		take := entry * (1 + m.cfg.TakeProfit.Percent/100)
		pos.TakeProfit = &take
	}
}

// Monitor checks the open long position against its guards at the current
// price. The stop-loss is evaluated before the take-profit. With trailing
// enabled the guard prices ratchet toward new highs and never loosen; the
// trailing stop then triggers on price rather than on distance from entry.
func (m *Manager) Monitor(pos *Position, current float64) (Exit, bool) {
	if !pos.Open() || current <= 0 {
		return Exit{}, false
	}

	unrealized := pos.UnrealizedPercent(current)

	if m.cfg.StopLoss.Enabled && m.cfg.StopLoss.Percent > 0 {
		if m.cfg.StopLoss.Trailing {
			m.ratchetStop(pos, current)
			if pos.StopLoss != nil && current <= *pos.StopLoss {
				return Exit{Reason: StopLoss, UnrealizedPercent: unrealized}, true
			}
		} else if unrealized <= -m.cfg.StopLoss.Percent {
			return Exit{Reason: StopLoss, UnrealizedPercent: unrealized}, true
		}
	}

	if m.cfg.TakeProfit.Enabled && m.cfg.TakeProfit.Percent > 0 {
		if unrealized >= m.cfg.TakeProfit.Percent {
			return Exit{Reason: TakeProfit, UnrealizedPercent: unrealized}, true
		}
	}

	return Exit{}, false
}

func (m *Manager) ratchetStop(pos *Position, current float64) {
	candidate := current * (1 - m.cfg.StopLoss.Percent/100)
	if pos.StopLoss == nil || candidate > *pos.StopLoss {
		pos.StopLoss = &candidate
	}
}

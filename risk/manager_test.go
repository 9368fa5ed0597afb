package risk

import (
	"testing"
	"time"

	"github.com/rustyeddy/tradebot/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acctWith(free float64) market.Account {
	a := market.NewAccount()
	a.Balances["USDT"] = market.Balance{Total: free, Free: free}
	return a
}

func TestOrderSize(t *testing.T) {
	m := NewManager(Config{RiskPercent: 2})

	t.Run("unknown account sizes to zero", func(t *testing.T) {
		got := m.OrderSize(50000, 100, market.Account{}, "USDT")
		assert.Zero(t, got)
	})

	t.Run("risk budget capped by risk percent", func(t *testing.T) {
		// free 10000, 2% cap = 200 < requested 500 -> 200/50000
		got := m.OrderSize(50000, 500, acctWith(10000), "USDT")
		assert.InDelta(t, 200.0/50000.0, got, 1e-12)
	})

	t.Run("small budget bumps to minimum lot", func(t *testing.T) {
		// 2% of 10000 = 200, requested 10 -> 10/50000 = 0.0002 < MinLot
		got := m.OrderSize(50000, 10, acctWith(10000), "USDT")
		assert.Equal(t, MinLot, got)
	})

	t.Run("minimum lot beyond balance sizes to zero", func(t *testing.T) {
		// free/price = 0.0004 < MinLot: nothing tradable
		got := m.OrderSize(50000, 10, acctWith(20), "USDT")
		assert.Zero(t, got)
	})

	t.Run("quantity never exceeds free balance", func(t *testing.T) {
		big := NewManager(Config{RiskPercent: 100})
		got := big.OrderSize(100, 1e9, acctWith(1000), "USDT")
		assert.InDelta(t, 10.0, got, 1e-12)
	})

	t.Run("zero free balance sizes to zero", func(t *testing.T) {
		got := m.OrderSize(50000, 100, acctWith(0), "USDT")
		assert.Zero(t, got)
	})
}

func TestOnOpen(t *testing.T) {
	t.Run("both guards enabled", func(t *testing.T) {
		m := NewManager(Config{
			StopLoss:   Guard{Enabled: true, Percent: 2},
			TakeProfit: Guard{Enabled: true, Percent: 5},
		})
		pos := &Position{Symbol: "BTC-USDT"}
		m.OnOpen(pos, 40000, 0.5, time.Now())

		require.NotNil(t, pos.StopLoss)
		require.NotNil(t, pos.TakeProfit)
		assert.InDelta(t, 39200, *pos.StopLoss, 1e-9)
		assert.InDelta(t, 42000, *pos.TakeProfit, 1e-9)

		// stopLossPrice < avgPrice < takeProfitPrice
		assert.Less(t, *pos.StopLoss, pos.AvgPrice)
		assert.Greater(t, *pos.TakeProfit, pos.AvgPrice)
	})

	t.Run("disabled guards stay nil", func(t *testing.T) {
		m := NewManager(Config{})
		pos := &Position{Symbol: "BTC-USDT"}
		m.OnOpen(pos, 40000, 0.5, time.Now())
		assert.Nil(t, pos.StopLoss)
		assert.Nil(t, pos.TakeProfit)
	})
}

func TestMonitor(t *testing.T) {
	newPos := func(m *Manager, entry float64) *Position {
		pos := &Position{Symbol: "BTC-USDT"}
		m.OnOpen(pos, entry, 1, time.Now())
		return pos
	}

	t.Run("stop loss fires below threshold", func(t *testing.T) {
		m := NewManager(Config{StopLoss: Guard{Enabled: true, Percent: 2}})
		pos := newPos(m, 1000)

		// -2.5% unrealized with a 2% stop must force STOP_LOSS.
		exit, ok := m.Monitor(pos, 975)
		require.True(t, ok)
		assert.Equal(t, StopLoss, exit.Reason)
		assert.InDelta(t, -2.5, exit.UnrealizedPercent, 1e-9)
	})

	t.Run("take profit fires above threshold", func(t *testing.T) {
		m := NewManager(Config{TakeProfit: Guard{Enabled: true, Percent: 5}})
		pos := newPos(m, 1000)

		exit, ok := m.Monitor(pos, 1051)
		require.True(t, ok)
		assert.Equal(t, TakeProfit, exit.Reason)
	})

	t.Run("stop loss checked before take profit", func(t *testing.T) {
		// Contradictory thresholds both satisfied: the stop wins.
		m := NewManager(Config{
			StopLoss:   Guard{Enabled: true, Percent: 0.0001},
			TakeProfit: Guard{Enabled: true, Percent: 0.0001},
		})
		pos := newPos(m, 1000)
		exit, ok := m.Monitor(pos, 999)
		require.True(t, ok)
		assert.Equal(t, StopLoss, exit.Reason)
	})

	t.Run("inside guards no exit", func(t *testing.T) {
		m := NewManager(Config{
			StopLoss:   Guard{Enabled: true, Percent: 2},
			TakeProfit: Guard{Enabled: true, Percent: 5},
		})
		pos := newPos(m, 1000)
		_, ok := m.Monitor(pos, 1010)
		assert.False(t, ok)
	})

	t.Run("no position no exit", func(t *testing.T) {
		m := NewManager(Config{StopLoss: Guard{Enabled: true, Percent: 2}})
		_, ok := m.Monitor(nil, 1000)
		assert.False(t, ok)
		_, ok = m.Monitor(&Position{}, 1000)
		assert.False(t, ok)
	})

	t.Run("trailing stop ratchets up and triggers", func(t *testing.T) {
		m := NewManager(Config{StopLoss: Guard{Enabled: true, Percent: 2, Trailing: true}})
		pos := newPos(m, 1000)
		require.NotNil(t, pos.StopLoss)
		assert.InDelta(t, 980, *pos.StopLoss, 1e-9)

		// Price rises: stop follows.
		_, ok := m.Monitor(pos, 1100)
		require.False(t, ok)
		assert.InDelta(t, 1078, *pos.StopLoss, 1e-9)

		// Price dips but stays above the trailed stop.
		_, ok = m.Monitor(pos, 1090)
		require.False(t, ok)
		assert.InDelta(t, 1078, *pos.StopLoss, 1e-9, "stop never loosens")

		// Price breaks the trailed stop: exit even though still above entry.
		exit, ok := m.Monitor(pos, 1070)
		require.True(t, ok)
		assert.Equal(t, StopLoss, exit.Reason)
		assert.Greater(t, exit.UnrealizedPercent, 0.0)
	})
}

func TestRealizedPL(t *testing.T) {
	assert.InDelta(t, 500.0, RealizedPL(40000, 41000, 0.5), 1e-9)
	assert.InDelta(t, -500.0, RealizedPL(41000, 40000, 0.5), 1e-9)
}

// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the engine collectors. A nil *Metrics is safe to use
// everywhere and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	ticks      prometheus.Counter
	trades     *prometheus.CounterVec
	fetchErrs  *prometheus.CounterVec
	lastPrice  prometheus.Gauge
	confidence prometheus.Gauge
	position   prometheus.Gauge
	profit     prometheus.Gauge
}

// New builds the collector set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_price_updates_total",
			Help: "Completed price update cycles.",
		}),
		trades: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_trades_total",
			Help: "Executed trades by side.",
		}, []string{"side"}),
		fetchErrs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_exchange_errors_total",
			Help: "Exchange call failures by kind.",
		}, []string{"kind"}),
		lastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_last_price",
			Help: "Most recent trade price.",
		}),
		confidence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_signal_confidence",
			Help: "Confidence of the latest strategy signal.",
		}),
		position: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_position_size",
			Help: "Open position size in base currency, zero when flat.",
		}),
		profit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_total_profit",
			Help: "Cumulative realized profit in quote currency.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Tick(price float64) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.lastPrice.Set(price)
}

func (m *Metrics) Signal(confidence float64) {
	if m == nil {
		return
	}
	m.confidence.Set(confidence)
}

func (m *Metrics) Trade(side string) {
	if m == nil {
		return
	}
	m.trades.WithLabelValues(side).Inc()
}

func (m *Metrics) FetchError(kind string) {
	if m == nil {
		return
	}
	m.fetchErrs.WithLabelValues(kind).Inc()
}

func (m *Metrics) Position(size float64) {
	if m == nil {
		return
	}
	m.position.Set(size)
}

func (m *Metrics) Profit(total float64) {
	if m == nil {
		return
	}
	m.profit.Set(total)
}

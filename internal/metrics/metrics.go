// Package metrics exposes Prometheus counters for the strategy loop and the
// order executor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

const namespace = "tickbot"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	reg *prometheus.Registry

	ticks            prometheus.Counter
	lastTick         prometheus.Gauge
	strategyRuns     *prometheus.CounterVec
	strategyDuration *prometheus.HistogramVec
	orders           *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks processed by the strategy loop.",
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_tick",
			Help:      "Most recent tick processed.",
		}),
		strategyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_runs_total",
			Help:      "Strategy evaluations by outcome.",
		}, []string{"strategy", "outcome"}),
		strategyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strategy_duration_seconds",
			Help:      "Wall time of one strategy evaluation, including order submission.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"strategy"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order submissions by source, type and outcome.",
		}, []string{"source", "type", "outcome"}),
	}
	m.reg.MustRegister(
		m.ticks, m.lastTick, m.strategyRuns, m.strategyDuration, m.orders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTick counts a processed tick.
func (m *Metrics) ObserveTick(tick int64) {
	m.ticks.Inc()
	m.lastTick.Set(float64(tick))
}

// ObserveStrategy records one strategy evaluation.
func (m *Metrics) ObserveStrategy(name, outcome string, d time.Duration) {
	m.strategyRuns.WithLabelValues(name, outcome).Inc()
	m.strategyDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveOrder records one order submission.
func (m *Metrics) ObserveOrder(source string, typ domain.OrderType, outcome string) {
	m.orders.WithLabelValues(source, string(typ), outcome).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

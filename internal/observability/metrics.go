// Package observability provides Prometheus collectors for the engine.
package observability

import (
	"net/http"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineMetrics holds the engine collectors on a private registry.
type EngineMetrics struct {
	registry *prometheus.Registry

	AssetsCreated     prometheus.Counter
	Trades            *prometheus.CounterVec
	TradeVolume       *prometheus.CounterVec
	Fees              *prometheus.CounterVec
	Graduations       prometheus.Counter
	LiquidityMigrated prometheus.Counter
	Rejections        *prometheus.CounterVec
	ActivePools       prometheus.Gauge
	GraduatedPools    prometheus.Gauge
	ReentrancyBlocked prometheus.Counter
}

// NewEngineMetrics creates and registers the engine collectors.
func NewEngineMetrics(namespace string) *EngineMetrics {
	if namespace == "" {
		namespace = "launchpad"
	}

	m := &EngineMetrics{registry: prometheus.NewRegistry()}

	m.AssetsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "assets_created_total",
		Help:      "Total number of assets created",
	})
	m.Trades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "trades_total",
		Help:      "Total number of executed trades by side",
	}, []string{"side"})
	m.TradeVolume = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "trade_volume_eth_total",
		Help:      "Settlement currency traded by side, in whole units",
	}, []string{"side"})
	m.Fees = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "fees_eth_total",
		Help:      "Fees remitted to the fee recipient by kind, in whole units",
	}, []string{"kind"})
	m.Graduations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "graduations_total",
		Help:      "Total number of pools graduated",
	})
	m.LiquidityMigrated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "liquidity_migrated_eth_total",
		Help:      "Settlement currency handed to the migrator, in whole units",
	})
	m.Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "rejections_total",
		Help:      "Operations rejected by operation and reason",
	}, []string{"op", "reason"})
	m.ActivePools = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "active_pools",
		Help:      "Pools currently trading on the curve",
	})
	m.GraduatedPools = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "graduated_pools",
		Help:      "Pools that have migrated",
	})
	m.ReentrancyBlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "reentrancy_blocked_total",
		Help:      "Nested entry attempts rejected by the reentrancy guard",
	})

	m.registry.MustRegister(
		m.AssetsCreated,
		m.Trades,
		m.TradeVolume,
		m.Fees,
		m.Graduations,
		m.LiquidityMigrated,
		m.Rejections,
		m.ActivePools,
		m.GraduatedPools,
		m.ReentrancyBlocked,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *EngineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the collectors.
func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCreation records a new pool.
func (m *EngineMetrics) ObserveCreation() {
	if m == nil {
		return
	}
	m.AssetsCreated.Inc()
	m.ActivePools.Inc()
}

// ObserveTrade records one executed trade and its fee.
func (m *EngineMetrics) ObserveTrade(isBuy bool, currency, fee *uint256.Int) {
	if m == nil {
		return
	}
	side := Side(isBuy)
	m.Trades.WithLabelValues(side).Inc()
	m.TradeVolume.WithLabelValues(side).Add(Units(currency))
	if !fee.IsZero() {
		m.Fees.WithLabelValues("trade").Add(Units(fee))
	}
}

// ObserveGraduation records a migrated pool.
func (m *EngineMetrics) ObserveGraduation(currency, fee *uint256.Int) {
	if m == nil {
		return
	}
	m.Graduations.Inc()
	m.ActivePools.Dec()
	m.GraduatedPools.Inc()
	m.LiquidityMigrated.Add(Units(currency))
	if !fee.IsZero() {
		m.Fees.WithLabelValues("graduation").Add(Units(fee))
	}
}

// ObserveCreationFee records a creation fee remittance.
func (m *EngineMetrics) ObserveCreationFee(fee *uint256.Int) {
	if m == nil || fee.IsZero() {
		return
	}
	m.Fees.WithLabelValues("creation").Add(Units(fee))
}

// ObserveRejection records a failed operation.
func (m *EngineMetrics) ObserveRejection(op, reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(op, reason).Inc()
}

// ObserveReentrancy records a blocked nested entry.
func (m *EngineMetrics) ObserveReentrancy() {
	if m == nil {
		return
	}
	m.ReentrancyBlocked.Inc()
}

// Side returns the trade side label.
func Side(isBuy bool) string {
	if isBuy {
		return "buy"
	}
	return "sell"
}

// Units converts an 18-decimal base-unit amount to a float of whole units.
func Units(amount *uint256.Int) float64 {
	f, err := strconv.ParseFloat(amount.Dec(), 64)
	if err != nil {
		return 0
	}
	return f / 1e18
}

// Package metrics holds the Prometheus instruments shared by the gateway.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	readsTotal    *prometheus.CounterVec
	readDuration  *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	actionsTotal  *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec

	registerOnce sync.Once
}

// New creates and registers the instruments with registry. A nil registry
// yields a nil *Metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.readsTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bst_contract_reads_total",
			Help: "Total contract reads by method and outcome",
		}, []string{"method", "outcome"})

		m.readDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bst_contract_read_duration_seconds",
			Help:    "Contract read latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"})

		m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
			Name: "bst_contract_read_cache_hits_total",
			Help: "Total contract reads served from the staleness window",
		})

		m.actionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bst_governance_actions_total",
			Help: "Total governance actions prepared or relayed by outcome",
		}, []string{"action", "outcome"})

		m.gateDecisions = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bst_gate_decisions_total",
			Help: "Total access gate decisions by kind",
		}, []string{"decision"})
	})
	return m
}

func (m *Metrics) ObserveRead(method, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.readsTotal.WithLabelValues(method, outcome).Inc()
	m.readDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) Action(action, outcome string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Decision(kind string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(kind).Inc()
}

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by every cache.
type Metrics struct {
	requests *prometheus.CounterVec
	fills    *prometheus.CounterVec
	entries  *prometheus.GaugeVec
}

// NewMetrics registers cache collectors with reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by result (hit, stale, miss)",
		}, []string{"cache", "result"}),
		fills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fills_total",
			Help:      "Cache fills by outcome (ok, error)",
		}, []string{"cache", "status"}),
		entries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held",
		}, []string{"cache"}),
	}
}

func (m *Metrics) request(cache, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) fill(cache string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fills.WithLabelValues(cache, status).Inc()
}

func (m *Metrics) size(cache string, n int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(cache).Set(float64(n))
}

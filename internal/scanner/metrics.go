package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports client activity to Prometheus
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	CacheHitsTotal     *prometheus.CounterVec
	RateLimitHitsTotal *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// NewMetrics registers the client metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scangofer",
			Subsystem: "scanner",
			Name:      "requests_total",
			Help:      "Explorer API requests sent (outcome=success/empty/failure/timeout/network)",
		}, []string{"category", "action", "outcome"}),

		CacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scangofer",
			Subsystem: "scanner",
			Name:      "cache_hits_total",
			Help:      "Explorer API requests served from cache",
		}, []string{"category", "action"}),

		RateLimitHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scangofer",
			Subsystem: "scanner",
			Name:      "rate_limit_hits_total",
			Help:      "Responses rejected by the provider-side rate limit",
		}, []string{"category"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scangofer",
			Subsystem: "scanner",
			Name:      "request_duration_seconds",
			Help:      "Explorer API round-trip time per attempt",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
}

func (m *Metrics) observeRequest(category Category, action, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(category), action, outcome).Inc()
	m.RequestDuration.WithLabelValues(action).Observe(seconds)
}

func (m *Metrics) observeCacheHit(category Category, action string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(string(category), action).Inc()
}

func (m *Metrics) observeRateLimit(category Category) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(string(category)).Inc()
}

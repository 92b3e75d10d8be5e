package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the Prometheus gauges/counters shared across packages:
// worker-pool overflow drops (spec section 9, "telemetry on drop counts is
// mandatory"), rate-limiter decisions, coordinator eviction passes, and
// classification cache hit rate.
type Metrics struct {
	Registry *prometheus.Registry

	WorkerQueueDropped   prometheus.Counter
	WorkerQueueDepth     prometheus.Gauge
	RateLimitAllowed     *prometheus.CounterVec
	RateLimitDenied      *prometheus.CounterVec
	CoordinatorEvictions *prometheus.CounterVec
	CoordinatorTotalMB   prometheus.Gauge
	ClassificationCache  *prometheus.CounterVec
	QueryCache           *prometheus.CounterVec
}

// NewMetrics constructs and registers the service's Prometheus collectors
// under namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		WorkerQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "worker", Name: "queue_dropped_total",
			Help: "Async side-effect tasks dropped because the bounded queue was full.",
		}),
		WorkerQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "worker", Name: "queue_depth",
			Help: "Current depth of the async side-effect queue.",
		}),
		RateLimitAllowed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ratelimit", Name: "allowed_total",
			Help: "Requests allowed by the rate limiter, by mode.",
		}, []string{"mode"}),
		RateLimitDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ratelimit", Name: "denied_total",
			Help: "Requests denied by the rate limiter, by mode.",
		}, []string{"mode"}),
		CoordinatorEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "coordinator", Name: "evictions_total",
			Help: "Entries evicted from a registered cache, by cache name.",
		}, []string{"cache"}),
		CoordinatorTotalMB: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "coordinator", Name: "total_memory_mb",
			Help: "Total memory across all registered caches, in megabytes.",
		}),
		ClassificationCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "classification", Name: "cache_total",
			Help: "Classification cache lookups, by outcome (hit/miss).",
		}, []string{"outcome"}),
		QueryCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "query", Name: "cache_total",
			Help: "Query result cache lookups, by outcome (hit/miss).",
		}, []string{"outcome"}),
	}
}

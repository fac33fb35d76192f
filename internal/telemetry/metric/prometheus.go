package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kkmgate"

// Rejection reasons for ConnectionsRejected.
const (
	ReasonConcurrency = "concurrency"
	ReasonRateLimit   = "rate_limit"
	ReasonShutdown    = "shutdown"
)

// Cache lookup results for CacheLookups.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheConflict = "conflict"
	CacheStale    = "stale"
)

// Registry holds all gateway metrics and the Prometheus registry they are
// registered with. Each server owns one.
type Registry struct {
	registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec
	HandshakeFailures   prometheus.Counter
	Inflight            prometheus.Gauge

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Timeouts        prometheus.Counter

	CacheLookups *prometheus.CounterVec

	DeviceOperations *prometheus.CounterVec
}

// NewRegistry creates a registry with the gateway metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newRegistry(reg)
}

// NewBareRegistry creates a registry with only the gateway metrics.
func NewBareRegistry() *Registry {
	return newRegistry(prometheus.NewRegistry())
}

func newRegistry(reg *prometheus.Registry) *Registry {
	f := promauto.With(reg)
	return &Registry{
		registry: reg,

		ConnectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Connections admitted by the listener",
		}),
		ConnectionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections closed at admission",
		}, []string{"reason"}),
		HandshakeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tls_handshake_failures_total",
			Help:      "Failed TLS handshakes",
		}),
		Inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_connections",
			Help:      "Connections currently holding a permit",
		}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests answered, by routing area and status code",
		}, []string{"area", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from accept to response written",
			Buckets:   prometheus.DefBuckets,
		}, []string{"area"}),
		Timeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_timeouts_total",
			Help:      "Requests abandoned at the request deadline",
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		}, []string{"kind", "result"}),

		DeviceOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_operations_total",
			Help:      "Device operations by name and outcome",
		}, []string{"op", "result"}),
	}
}

// MustRegister registers additional collectors such as a Collector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

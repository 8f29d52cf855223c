// Package metrics holds the Prometheus collectors shared by the service
// tick loop and the HTTP/WebSocket layer. It is split out from internal/api
// so internal/service (which records broadphase-level metrics from the
// tick loop) and internal/api (which records HTTP-level metrics from
// middleware) can both depend on it without an import cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-proxy labels to prevent DoS)
var (
	proxyCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broadphase_proxies",
		Help: "Current number of registered proxies",
	})

	pairCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broadphase_pairs",
		Help: "Current number of overlapping pairs",
	})

	maxOverlapsPerEntityUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broadphase_max_overlaps_per_entity_used",
		Help: "Highest simultaneous overlap count held by any single proxy",
	})

	updateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "broadphase_update_duration_seconds",
		Help:    "Time spent applying one Broadphase.Update call",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.001},
	})

	overCapacityTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadphase_overcapacity_total",
		Help: "Total mutations rejected with ErrOverCapacity",
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_render_duration_seconds",
		Help:    "Time spent rendering a PNG snapshot",
		Buckets: []float64{0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// RecordUpdate records Broadphase.Update timing.
func RecordUpdate(duration time.Duration) { updateDuration.Observe(duration.Seconds()) }

// RecordRender records snapshot render timing.
func RecordRender(duration time.Duration) { renderDuration.Observe(duration.Seconds()) }

// UpdateProxyCount updates the proxy gauge.
func UpdateProxyCount(count int) { proxyCount.Set(float64(count)) }

// UpdatePairCount updates the pair gauge.
func UpdatePairCount(count int) { pairCount.Set(float64(count)) }

// UpdateMaxOverlapsPerEntityUsed updates the per-entity overlap high-water gauge.
func UpdateMaxOverlapsPerEntityUsed(count int) { maxOverlapsPerEntityUsed.Set(float64(count)) }

// RecordOverCapacity increments the over-capacity counter.
func RecordOverCapacity() { overCapacityTotal.Inc() }

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) { connectionRejected.WithLabelValues(reason).Inc() }

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count.
func UpdateWSConnections(count int) { wsConnectionsActive.Set(float64(count)) }

// IncrementWSMessages increments WebSocket message counter.
func IncrementWSMessages() { wsMessagesTotal.Inc() }

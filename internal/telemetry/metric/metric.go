// Package metric provides Prometheus metrics for BoardMesh.
//
// It exposes metrics in Prometheus format for monitoring live
// connections, broadcast fan-out, snapshot persistence, and
// heartbeat health.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics backed by a dedicated
// Prometheus registry, so tests can create isolated instances.
type Registry struct {
	reg *prometheus.Registry

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	HeartbeatTimeouts prometheus.Counter

	// Fan-out metrics
	BroadcastsTotal prometheus.Counter
	BroadcastDrops  prometheus.Counter

	// Snapshot metrics
	SnapshotsPersisted prometheus.Counter
	SnapshotsRejected  prometheus.Counter
	SnapshotBytes      prometheus.Histogram

	// Request metrics
	RequestsTotal *prometheus.CounterVec
}

// New creates a new metrics registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boardmesh_connections_active",
			Help: "Number of live sync connections.",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardmesh_connections_total",
			Help: "Total sync connections accepted.",
		}),
		HeartbeatTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardmesh_heartbeat_timeouts_total",
			Help: "Connections force-closed by heartbeat timeout.",
		}),

		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardmesh_broadcasts_total",
			Help: "Snapshot broadcasts fanned out to peers.",
		}),
		BroadcastDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardmesh_broadcast_drops_total",
			Help: "Peers dropped during fan-out (slow or closed).",
		}),

		SnapshotsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardmesh_snapshots_persisted_total",
			Help: "Accepted snapshot writes.",
		}),
		SnapshotsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardmesh_snapshots_rejected_total",
			Help: "Snapshot writes rejected for exceeding the size cap.",
		}),
		SnapshotBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "boardmesh_snapshot_bytes",
			Help:    "Size distribution of accepted snapshots.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1 KiB .. 16 MiB
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardmesh_http_requests_total",
			Help: "HTTP requests by method, path pattern, and status.",
		}, []string{"method", "path", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

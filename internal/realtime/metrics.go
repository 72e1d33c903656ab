package realtime

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PushesTotal counts pushes delivered through the dispatcher, by event.
	PushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lawdesk_pushes_total",
		Help: "Total number of real-time pushes delivered",
	}, []string{"event"})

	// PushFailuresTotal counts transient push failures. Persisted rows are
	// unaffected; clients reconcile by re-fetching.
	PushFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lawdesk_push_failures_total",
		Help: "Total number of failed real-time pushes",
	}, []string{"event"})

	// PushesDropped counts pushes rejected because the queue was full or
	// the dispatcher was draining.
	PushesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lawdesk_pushes_dropped_total",
		Help: "Total number of pushes dropped before dispatch",
	})

	// PushQueueDepth tracks the current dispatcher backlog.
	PushQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lawdesk_push_queue_depth",
		Help: "Current number of pushes waiting for dispatch",
	})

	// ConnectionsTotal tracks active websocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lawdesk_ws_connections",
		Help: "Current number of active WebSocket connections",
	})

	// PresenceMembers tracks users currently online across all rooms.
	PresenceMembers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lawdesk_presence_members",
		Help: "Current number of (room, user) presence memberships",
	})
)

func init() {
	prometheus.MustRegister(
		PushesTotal,
		PushFailuresTotal,
		PushesDropped,
		PushQueueDepth,
		ConnectionsTotal,
		PresenceMembers,
	)
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

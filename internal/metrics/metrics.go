package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Messaging metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"room_type"}, // "dm" or "group"
	)

	FanoutDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_fanout_delivered_total",
			Help: "Frames delivered to connection buffers",
		},
	)

	FanoutDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_fanout_dropped_total",
			Help: "Frames dropped for slow or closed connections",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatd_ws_connections",
			Help: "Currently open websocket connections",
		},
	)

	UnreadIncrements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_unread_increments_total",
			Help: "Unread counter increments applied",
		},
	)

	GroupEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_group_events_total",
			Help: "Group lifecycle events",
		},
		[]string{"action"}, // "created" or "deleted"
	)
)

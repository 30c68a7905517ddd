package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration records request latency by method, route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nearby_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// PostsCreated counts created posts, reposts included.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearby_posts_created_total",
		Help: "Total number of posts created",
	}, []string{"kind"})

	// Reactions counts like and eyewitness toggles.
	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearby_reactions_total",
		Help: "Total number of reaction toggles",
	}, []string{"reaction", "action"})

	// PostsSwept counts posts removed by the expiry sweeper.
	PostsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nearby_posts_swept_total",
		Help: "Total number of expired posts deleted by the sweeper",
	})

	// SweepErrors counts posts the sweeper failed to delete.
	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nearby_sweep_errors_total",
		Help: "Total number of sweep failures",
	})

	// VerificationOutcomes counts verifier results by outcome.
	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearby_verification_outcomes_total",
		Help: "Content verification results by outcome",
	}, []string{"outcome"})

	// NotificationsCreated counts notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearby_notifications_created_total",
		Help: "Total notifications created by type",
	}, []string{"type"})

	// MessagesSent counts chat messages.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nearby_chat_messages_sent_total",
		Help: "Total number of chat messages sent",
	})

	// RealtimeConnections is the number of open realtime sockets.
	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nearby_realtime_connections",
		Help: "Number of open realtime websocket connections",
	})
)

// RecordRequest observes one HTTP request.
func RecordRequest(method, route string, status int, latency time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(latency.Seconds())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "recruitment_intake"

	ChatSubsystem     = "chat"
	RealtimeSubsystem = "realtime"
	FeedSubsystem     = "admin_feed"
	UpstreamSubsystem = "upstream"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// Chat assistant
var (
	ChatActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ChatSubsystem,
			Name:      "actions_total",
			Help:      "Chat actions by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ChatSubsystem,
			Name:      "active_sessions",
			Help:      "Open chat sessions",
		},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: ChatSubsystem,
			Name:      "submission_duration_seconds",
			Help:      "Resume upload duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
)

// Realtime channel
var (
	RealtimeConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RealtimeSubsystem,
			Name:      "connected",
			Help:      "1 while the admin room connection is up",
		},
	)

	RealtimeDialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RealtimeSubsystem,
			Name:      "dials_total",
			Help:      "Connection attempts to the realtime server",
		},
		[]string{"status"},
	)

	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RealtimeSubsystem,
			Name:      "events_total",
			Help:      "Inbound realtime frames by event",
		},
		[]string{"event"},
	)
)

// Admin feed
var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: FeedSubsystem,
			Name:      "notifications_total",
			Help:      "Notification insert attempts by source and result",
		},
		[]string{"source", "result"},
	)

	UnreadNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: FeedSubsystem,
			Name:      "unread_notifications",
			Help:      "Current unread notification count",
		},
	)

	ResumeRefetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: FeedSubsystem,
			Name:      "resume_refetches_total",
			Help:      "Resume list refetches triggered by notifications",
		},
		[]string{"status"},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: FeedSubsystem,
			Name:      "stream_subscribers",
			Help:      "Connected admin event-stream clients",
		},
	)
)

// Recruitment API
var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: UpstreamSubsystem,
			Name:      "requests_total",
			Help:      "Requests to the recruitment API",
		},
		[]string{"operation", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: UpstreamSubsystem,
			Name:      "circuit_breaker_state",
			Help:      "0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)

func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordChatAction(step, outcome string) {
	ChatActionsTotal.WithLabelValues(step, outcome).Inc()
}

func RecordSubmission(status string, duration time.Duration) {
	SubmissionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordUpstream(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(operation, status).Inc()
}

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

var (
	metricsOnce sync.Once

	friendshipTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendship_transitions_total",
			Help: "Total number of friendship actions by action and result.",
		},
		[]string{"action", "result"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications created, by type and whether they were pushed live.",
		},
		[]string{"type", "pushed"},
	)

	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of direct messages sent.",
		},
	)

	remindersFiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_fired_total",
			Help: "Total number of reminders delivered.",
		},
	)

	socketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "socket_connections",
			Help: "Number of open websocket connections.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register adds every collector to the default registry once.
func Register() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(
			friendshipTransitionsTotal,
			notificationsTotal,
			messagesSentTotal,
			remindersFiredTotal,
			socketConnections,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

func IncFriendshipTransition(action, result string) {
	Register()
	friendshipTransitionsTotal.WithLabelValues(action, result).Inc()
}

func IncNotification(notificationType string, pushed bool) {
	Register()
	notificationsTotal.WithLabelValues(notificationType, strconv.FormatBool(pushed)).Inc()
}

func IncMessageSent() {
	Register()
	messagesSentTotal.Inc()
}

func IncReminderFired() {
	Register()
	remindersFiredTotal.Inc()
}

func SocketConnected() {
	Register()
	socketConnections.Inc()
}

func SocketDisconnected() {
	Register()
	socketConnections.Dec()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	Register()
	if route == "" {
		route = "unknown"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

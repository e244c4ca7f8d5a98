package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "toto"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_seconds",
		Help:      "Database statement latency by operation and outcome.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "success"})

	storeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_failed_attempts_total",
		Help:      "Store operation attempts that failed with a transient error.",
	}, []string{"operation"})

	realtimeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_sessions",
		Help:      "Currently connected realtime sessions.",
	})

	realtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Realtime events delivered to sessions, by event and origin path.",
	}, []string{"event", "path"})

	realtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_dropped_total",
		Help:      "Realtime events dropped because a session send buffer was full.",
	})

	sinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "change_sink_failures_total",
		Help:      "Change events a sink failed to accept.",
	}, []string{"sink"})

	reminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_reminders_total",
		Help:      "Subscription reminder messages by outcome.",
	}, []string{"outcome"})
)

// ObserveHTTP records one handled request
func ObserveHTTP(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveQuery records one database statement
func ObserveQuery(op string, success bool, d time.Duration) {
	dbQueryDuration.WithLabelValues(op, strconv.FormatBool(success)).Observe(d.Seconds())
}

// StoreRetry counts a failed attempt of a retried store operation
func StoreRetry(op string) {
	storeRetries.WithLabelValues(op).Inc()
}

// SessionOpened increments the connected session gauge
func SessionOpened() { realtimeSessions.Inc() }

// SessionClosed decrements the connected session gauge
func SessionClosed() { realtimeSessions.Dec() }

// EventDelivered counts an event queued to a session
func EventDelivered(event, path string) {
	realtimeEvents.WithLabelValues(event, path).Inc()
}

// EventDropped counts an event lost to a full send buffer
func EventDropped() { realtimeDropped.Inc() }

// SinkFailed counts a change event rejected by a sink
func SinkFailed(sink string) {
	sinkFailures.WithLabelValues(sink).Inc()
}

// ReminderSent counts a reminder by outcome: sent, failed or skipped
func ReminderSent(outcome string) {
	reminders.WithLabelValues(outcome).Inc()
}

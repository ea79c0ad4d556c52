// Package metrics exports Prometheus metrics for the site API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all site API Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Feed metrics
	FeedsGenerated  *prometheus.CounterVec
	FeedItemsServed *prometheus.HistogramVec

	// Engagement metrics
	BookmarkOps        *prometheus.CounterVec
	CounterUnavailable prometheus.Counter

	// Agent metrics
	AgentVisits *prometheus.CounterVec

	// Archive metrics
	EventsBuffered prometheus.Counter
	EventsDropped  prometheus.Counter
	EventsFlushed  prometheus.Counter
}

// New initializes and registers all metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "site_api_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "site_api_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"route"}),

		FeedsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "site_api_feeds_generated_total",
			Help: "Total feed documents generated by format",
		}, []string{"format"}),

		FeedItemsServed: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "site_api_feed_items_served",
			Help:    "Number of items per generated feed document",
			Buckets: []float64{1, 5, 10, 20, 50, 100},
		}, []string{"format"}),

		BookmarkOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "site_api_bookmark_ops_total",
			Help: "Total bookmark counter operations by action and outcome",
		}, []string{"action", "outcome"}),

		CounterUnavailable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "site_api_counter_unavailable_total",
			Help: "Total bookmark operations rejected because Redis was unreachable",
		}),

		AgentVisits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "site_api_agent_visits_total",
			Help: "Total requests from identified AI agents",
		}, []string{"agent"}),

		EventsBuffered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "site_api_events_buffered_total",
			Help: "Total engagement events accepted into the archive buffer",
		}),

		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "site_api_events_dropped_total",
			Help: "Total engagement events dropped due to a full archive buffer",
		}),

		EventsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "site_api_events_flushed_total",
			Help: "Total engagement events written to the archive",
		}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RequestMiddleware records request count and latency per route. The route
// label uses the matched route pattern, not the raw path, to bound
// cardinality.
func (m *Metrics) RequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.RequestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// RecordFeed records a generated feed document and its item count.
func (m *Metrics) RecordFeed(format string, items int) {
	m.FeedsGenerated.WithLabelValues(format).Inc()
	m.FeedItemsServed.WithLabelValues(format).Observe(float64(items))
}

// RecordBookmarkOp records a bookmark counter operation outcome.
func (m *Metrics) RecordBookmarkOp(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BookmarkOps.WithLabelValues(action, outcome).Inc()
}

// RecordAgentVisit records a request from an identified AI agent.
func (m *Metrics) RecordAgentVisit(agent string) {
	m.AgentVisits.WithLabelValues(agent).Inc()
}

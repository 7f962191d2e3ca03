// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkblog_comments_created_total",
		Help: "Comments created.",
	})

	CommentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkblog_comments_deleted_total",
		Help: "Comments deleted, replies removed with their parent included.",
	})

	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkblog_reaction_toggles_total",
		Help: "Reaction toggles by requested action and resulting state.",
	}, []string{"action", "result"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkblog_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware observes request latency labelled by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

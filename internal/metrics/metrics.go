package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ReservationsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parking_reservations_opened_total",
		Help: "Reservations opened",
	})

	ReservationsReleased = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parking_reservations_released_total",
		Help: "Reservations released",
	})

	BilledRevenue = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parking_billed_revenue_total",
		Help: "Sum of charges computed at release",
	})

	// CapacityOperations counts lot and spot changes by operation and result.
	CapacityOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_capacity_operations_total",
			Help: "Capacity manager operations by outcome",
		},
		[]string{"operation", "result"},
	)

	// EventsPublished counts notifier deliveries by sink and result.
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_events_published_total",
			Help: "Parking events delivered to notification sinks",
		},
		[]string{"sink", "result"},
	)
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestCounter,
		RequestDurationHistogram,
		ReservationsOpened,
		ReservationsReleased,
		BilledRevenue,
		CapacityOperations,
		EventsPublished,
	)
}

// Outcome labels err as "ok" or "error".
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDurationHistogram.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

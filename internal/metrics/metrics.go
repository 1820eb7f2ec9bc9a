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

const namespace = "pgstay"

var (
	BookingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "booking_decisions_total",
			Help:      "Owner decisions applied to bookings",
		},
		[]string{"decision", "outcome"},
	)

	TenanciesActivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "activated_total",
			Help:      "ACTIVE tenancy rows created",
		},
	)

	AgreementsSealed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agreement",
			Name:      "sealed_total",
			Help:      "Agreements moved to completed",
		},
	)

	PaymentOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "orders_total",
			Help:      "Payment orders by final creation outcome",
		},
		[]string{"outcome"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "webhook_deliveries_total",
			Help:      "Gateway webhook deliveries by result",
		},
		[]string{"result"},
	)

	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "gateway_request_seconds",
			Help:      "Latency of payment gateway calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	SettlementsMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "marked_done_total",
			Help:      "Settlements moved from PENDING to DONE",
		},
	)

	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Middleware records request latency by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	feedRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "feed",
			Name:      "refreshes_total",
			Help:      "Total number of market feed refresh attempts.",
		},
		[]string{"status"},
	)

	feedDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "feed",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of market feed refreshes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"status"},
	)

	cartOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Total number of cart mutations.",
		},
		[]string{"op"},
	)

	ordersCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "orders_completed_total",
			Help:      "Total number of completed simulated payments.",
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		feedRefreshes,
		feedDuration,
		cartOps,
		ordersCompleted,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordFeedRefresh records the outcome of one market feed refresh.
func RecordFeedRefresh(status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	feedRefreshes.WithLabelValues(status).Inc()
	feedDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordCartOp records a cart mutation.
func RecordCartOp(op string) {
	cartOps.WithLabelValues(op).Inc()
}

// RecordOrderCompleted records a completed payment.
func RecordOrderCompleted(method string) {
	if method == "" {
		method = "unknown"
	}
	ordersCompleted.WithLabelValues(method).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "sessions":
		if len(parts) == 1 {
			return "/sessions"
		}
		if len(parts) == 2 {
			return "/sessions/:session"
		}
		return "/sessions/:session/" + parts[2]
	case "catalog":
		if len(parts) == 1 {
			return "/catalog"
		}
		switch parts[1] {
		case "refresh", "stream":
			return "/catalog/" + parts[1]
		}
		return "/catalog/:item"
	default:
		return "/" + parts[0]
	}
}

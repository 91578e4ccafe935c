package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "latency",
	Help:    "Request latency",
	Buckets: prometheus.ExponentialBucketsRange(.05, 30, 20),
}, []string{"route", "status_code"})

var responseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "bytes_returned",
	Help:    "Bytes returned",
	Buckets: prometheus.ExponentialBucketsRange(1000, 100_000_000, 20),
}, []string{"route"})

var linksGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "links_generated",
	Help: "Portable artifact links generated",
})

var linksRevoked = promauto.NewCounter(prometheus.CounterOpts{
	Name: "links_revoked",
	Help: "Portable artifact links revoked",
})

var downloadsServed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "downloads_served",
	Help: "Artifact downloads served via a portable link",
})

var downloadsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "downloads_rejected",
	Help: "Download attempts with an unknown or expired link",
})

func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		routeName := chi.RouteContext(r.Context()).RoutePattern()

		latency.WithLabelValues(routeName, strconv.Itoa(ww.Status())).Observe(duration.Seconds())
		responseSize.WithLabelValues(routeName).Observe(float64(ww.BytesWritten()))
	})
}

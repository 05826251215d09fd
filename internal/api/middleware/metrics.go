// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reportstream_http_request_duration_seconds",
		Help:    "Time to complete HTTP requests; event streams are observed when they close",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 5, 30, 300, 3600},
	}, []string{"method", "route", "status"})

	requestBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reportstream_http_request_size_bytes",
		Help:    "Declared HTTP request body sizes",
		Buckets: prometheus.ExponentialBuckets(64, 4, 7),
	}, []string{"method", "route"})

	responseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reportstream_http_response_size_bytes",
		Help:    "HTTP response body sizes",
		Buckets: prometheus.ExponentialBuckets(64, 4, 7),
	}, []string{"method", "route", "status"})

	inFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reportstream_http_in_flight",
		Help: "Requests currently being served, split by kind (request or stream)",
	}, []string{"kind"})
)

// Metrics observes every request once it finishes. Requests that ask for
// text/event-stream count as streams while open.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			kind := "request"
			if strings.Contains(r.Header.Get("Accept"), "text/event-stream") || r.URL.Path == "/sse" {
				kind = "stream"
			}
			g := inFlight.WithLabelValues(kind)
			g.Inc()
			defer g.Dec()

			rec := &metricsWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := routePattern(r)
			status := strconv.Itoa(rec.status())
			requestSeconds.WithLabelValues(r.Method, route, status).Observe(elapsed.Seconds())
			if r.ContentLength > 0 {
				requestBytes.WithLabelValues(r.Method, route).Observe(float64(r.ContentLength))
			}
			if rec.bytes > 0 {
				responseBytes.WithLabelValues(r.Method, route, status).Observe(float64(rec.bytes))
			}
		})
	}
}

// routePattern keeps the route label bounded to registered patterns.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type metricsWriter struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (m *metricsWriter) status() int {
	if m.code == 0 {
		return http.StatusOK
	}
	return m.code
}

func (m *metricsWriter) WriteHeader(code int) {
	if m.code == 0 {
		m.code = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *metricsWriter) Write(b []byte) (int, error) {
	if m.code == 0 {
		m.code = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.bytes += n
	return n, err
}

func (m *metricsWriter) Flush() {
	if f, ok := m.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (m *metricsWriter) Unwrap() http.ResponseWriter { return m.ResponseWriter }

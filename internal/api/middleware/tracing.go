// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps the handler with OpenTelemetry HTTP instrumentation and
// propagates W3C trace context from incoming headers.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithPropagators(otel.GetTextMapPropagator()),
			otelhttp.WithSpanOptions(
				trace.WithAttributes(semconv.ServiceName(serviceName)),
			),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanName),
		)
	}
}

// shouldTrace skips probe and scrape endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

// spanName is "HTTP {METHOD} {PATH}"; query strings never reach span names.
func spanName(_ string, r *http.Request) string {
	return "HTTP " + r.Method + " " + r.URL.Path
}

// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress stack shared by every route.
package middleware

import (
	"net/http"

	"github.com/ManuGH/reportstream/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig selects the layers ApplyStack installs.
type StackConfig struct {
	// AllowedOrigins enables CORS; nil leaves it off.
	AllowedOrigins []string

	EnableSecurityHeaders bool
	EnableMetrics         bool
	EnableLogging         bool

	// TracingService names the otel service; empty leaves tracing off.
	TracingService string

	RateLimit RateLimitConfig
}

type wrap = func(http.Handler) http.Handler

type layer struct {
	on    bool
	build func() wrap
}

// layers lists the stack outermost first. Recovery and request ids are
// always on; the rate limiter sits innermost so rejected requests are still
// logged and counted.
func (c StackConfig) layers() []layer {
	return []layer{
		{true, func() wrap { return Recoverer }},
		{true, func() wrap { return RequestID }},
		{c.AllowedOrigins != nil, func() wrap { return CORS(c.AllowedOrigins) }},
		{c.EnableSecurityHeaders, func() wrap { return SecurityHeaders }},
		{c.EnableMetrics, Metrics},
		{c.TracingService != "", func() wrap { return Tracing(c.TracingService) }},
		{c.EnableLogging, log.Middleware},
		{c.RateLimit.Enabled, func() wrap { return RateLimit(c.RateLimit) }},
	}
}

// NewRouter returns a chi router with the stack already applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the enabled layers on r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	for _, l := range cfg.layers() {
		if l.on {
			r.Use(l.build())
		}
	}
}

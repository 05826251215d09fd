// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Enabled bool
	// RPS is the sustained per-client request rate.
	RPS int
	// Burst raises the per-second allowance above RPS.
	Burst int
	// Exempt paths bypass the limiter.
	Exempt []string
	// KeyFunc extracts the rate limit key; nil means client IP.
	KeyFunc func(r *http.Request) (string, error)
}

// limit returns the request allowance per one-second window.
func (c RateLimitConfig) limit() int {
	n := c.RPS
	if c.Burst > n {
		n = c.Burst
	}
	if n < 1 {
		n = 1
	}
	return n
}

// RateLimit creates a per-client sliding-window limiter with httprate.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	window := time.Second

	limiter := httprate.Limit(
		cfg.limit(),
		window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests","code":"RATE_LIMITED"}`))
		}),
	)

	exempt := make(map[string]bool, len(cfg.Exempt))
	for _, p := range cfg.Exempt {
		exempt[p] = true
	}

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

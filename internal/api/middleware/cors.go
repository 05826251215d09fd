// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
)

// CORS returns a middleware that sets Cross-Origin Resource Sharing headers.
// "*" in allowedOrigins allows every origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	allowAll := allowed["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case origin == "":
				// curl and backend-to-backend calls
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowAll || allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, Last-Event-ID")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.Header().Set("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")

			if r.Method == http.MethodOptions {
				w.Header().Set("Allow", "GET, POST, PUT, OPTIONS")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

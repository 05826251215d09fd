// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"github.com/ManuGH/reportstream/internal/log"
	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID adds a unique ID to every request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/reportstream/internal/log"
)

// Recoverer turns a handler panic into a logged 500 JSON response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			reqID := log.RequestIDFromContext(r.Context())

			pathLabel := r.URL.Path
			if !utf8.ValidString(pathLabel) {
				pathLabel = strings.ToValidUTF8(pathLabel, "")
			}

			logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str(log.FieldEvent, "panic.recovered").
				Str("method", r.Method).
				Str("path", pathLabel).
				Str("remote_addr", r.RemoteAddr).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "internal server error",
				"code":      "INTERNAL",
				"requestId": reqID,
			})
		}()

		next.ServeHTTP(w, r)
	})
}

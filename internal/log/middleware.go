// SPDX-License-Identifier: MIT

package log

import (
	"net/http"
	"time"
)

// Middleware logs one line per HTTP request once the handler returns.
// Long-lived push streams are logged when the client goes away.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger := WithComponentFromContext(r.Context(), "http")
			ev := logger.Info()
			if sw.status >= http.StatusInternalServerError {
				ev = logger.Error()
			} else if sw.status >= http.StatusBadRequest {
				ev = logger.Warn()
			}
			ev.Str(FieldEvent, "request.handled").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int("bytes", sw.bytes).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request handled")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush forwards to the wrapped writer so streaming handlers keep working.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

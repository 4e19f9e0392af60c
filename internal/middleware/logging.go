// Package middleware holds the cross-cutting HTTP middleware of the notes
// API: request logging and Prometheus request metrics.
//
// Every middleware here has the shape func(http.Handler) http.Handler, so
// chi's Use accepts it directly and the handlers never know it is there.
// Authentication is not in this package; it lives in internal/auth next to
// the token codec and identity resolver it depends on.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter records the status and body size a handler produced.
// Both the logger and the metrics middleware read them after next returns.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

// wrapWriter starts at 200: a handler that only calls Write never calls
// WriteHeader, and net/http sends 200 in that case.
func wrapWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger returns an HTTP middleware that logs each request using Go's slog package.
//
// Each log line includes method, path, status code, duration, bytes written
// and the chi request id. Nothing from headers or bodies is logged; both can
// carry tokens or passwords.
//
// LEVELS:
// 5xx responses log at Error so they stand out; everything else (including
// the 401s from the auth gate) logs at Info.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapWriter(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

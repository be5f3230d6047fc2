package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-ID"

type loggerKey struct{}

// LoggerMiddleware attaches a request-scoped logger tagged with a trace id
// and logs the start and end of every request.
func LoggerMiddleware(logger *utils.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = uuid.NewString()
			}
			w.Header().Set(TraceHeader, traceID)

			reqLogger := logger.With("trace_id", traceID)
			httpLogger := reqLogger.With(
				"http_method", r.Method,
				"http_path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			httpLogger.Debug("request started")

			ctx := context.WithValue(r.Context(), loggerKey{}, reqLogger)
			next.ServeHTTP(ww, r.WithContext(ctx))

			httpLogger.Info("request finished",
				"status_code", ww.Status(),
				"bytes_written", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// loggerFrom returns the request logger, or fallback outside the middleware.
func loggerFrom(ctx context.Context, fallback *utils.Logger) *utils.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*utils.Logger); ok {
		return l
	}
	return fallback
}

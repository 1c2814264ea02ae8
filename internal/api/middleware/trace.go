package middleware

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/platform/logger"
)

// TraceIDHeader lets clients supply their own trace ID. The value used is
// echoed on the response.
const TraceIDHeader = "X-Trace-Id"

// maxClientTraceIDLength bounds client-supplied trace IDs; longer ones are replaced.
const maxClientTraceIDLength = 64

// NewTraceMiddleware returns middleware that assigns every request a trace
// ID and stores a request-scoped logger, derived from base, in the context.
// The chi request ID, when present, is attached to that logger.
// It should run after chi's RequestID middleware and before any handler that logs.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.Header.Get(TraceIDHeader)
			if len(clientID) > maxClientTraceIDLength {
				clientID = ""
			}
			ctx := shared.WithTraceID(r.Context(), clientID)
			traceID := shared.GetTraceID(ctx)

			if reqID := chimw.GetReqID(ctx); reqID != "" {
				ctx = logger.WithRequestID(ctx, reqID)
			}
			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			w.Header().Set(TraceIDHeader, traceID)

			logger.FromContext(ctx).Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TraceMiddleware is NewTraceMiddleware with the default logger.
func TraceMiddleware(next http.Handler) http.Handler {
	return NewTraceMiddleware(nil)(next)
}

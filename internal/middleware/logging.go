package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/linkhub/linkhub/internal/metrics"
)

// unmatchedRoute labels requests no route matched, keeping metric cardinality bounded.
const unmatchedRoute = "unmatched"

// Logger returns a middleware that logs each HTTP request and records its
// latency. Request headers and bodies are never logged, so credentials and
// tokens stay out of the log stream. recorder may be nil.
func Logger(logger *slog.Logger, recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The subject is set by inner middleware, so read it back through a holder.
			holder := &subjectHolder{}
			next.ServeHTTP(ww, r.WithContext(withSubjectHolder(r.Context(), holder)))

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				// Handler wrote nothing.
				status = http.StatusOK
			}
			recorder.ObserveHTTPRequest(r.Method, routePattern(r), status, duration)

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if traceID := GetTraceID(r.Context()); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if holder.userID != "" {
				attrs = append(attrs, slog.String("user_id", holder.userID))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}

// routePattern returns the matched chi route pattern, e.g. "/api/me".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

type subjectHolderKey struct{}

// subjectHolder carries the authenticated user ID back out to the logger.
type subjectHolder struct {
	userID string
}

func withSubjectHolder(ctx context.Context, h *subjectHolder) context.Context {
	return context.WithValue(ctx, subjectHolderKey{}, h)
}

// noteSubject records the authenticated subject on the request's holder, if any.
func noteSubject(ctx context.Context, userID string) {
	if h, ok := ctx.Value(subjectHolderKey{}).(*subjectHolder); ok {
		h.userID = userID
	}
}

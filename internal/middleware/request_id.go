// Package middleware provides the HTTP middleware chain of the API:
// request correlation, access logging, panic recovery, security headers,
// CORS, body limits, per-IP rate limiting and bearer-token authentication.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Correlation headers.
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// maxInboundIDLength caps client supplied request and trace IDs.
const maxInboundIDLength = 128

type correlationKey struct{}

// correlation holds the IDs attached to one request.
type correlation struct {
	requestID string
	traceID   string
}

// RequestID attaches a request ID to the context and echoes it in the
// response. A well-formed inbound X-Request-ID is reused, otherwise a UUID is
// generated. A well-formed X-Trace-ID is propagated as is.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := correlation{
			requestID: inboundID(r, RequestIDHeader),
			traceID:   inboundID(r, TraceIDHeader),
		}
		if ids.requestID == "" {
			ids.requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, ids.requestID)
		if ids.traceID != "" {
			w.Header().Set(TraceIDHeader, ids.traceID)
		}

		ctx := context.WithValue(r.Context(), correlationKey{}, ids)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// inboundID returns the header value if it is short printable ASCII, so it
// can be logged and echoed safely, and "" otherwise.
func inboundID(r *http.Request, header string) string {
	id := r.Header.Get(header)
	if len(id) > maxInboundIDLength {
		return ""
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}
	return id
}

func correlationFrom(ctx context.Context) correlation {
	ids, _ := ctx.Value(correlationKey{}).(correlation)
	return ids
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	return correlationFrom(ctx).requestID
}

// GetTraceID returns the propagated trace ID, or "".
func GetTraceID(ctx context.Context) string {
	return correlationFrom(ctx).traceID
}

// Package middleware provides HTTP middleware components.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request ID.
	RequestIDKey contextKey = "request_id"
	// TraceIDKey is the context key for trace ID.
	TraceIDKey contextKey = "trace_id"
)

// RequestIDHeader is the HTTP header for request ID.
const RequestIDHeader = "X-Request-ID"

// TraceIDHeader is the HTTP header for trace ID.
const TraceIDHeader = "X-Trace-ID"

// maxIDLength caps client-supplied ids before they reach logs.
const maxIDLength = 128

// RequestID injects a unique request ID into each request.
// A well-formed X-Request-ID header is reused; otherwise a UUID is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !acceptableID(requestID) {
			requestID = uuid.New().String()
		}

		traceID := r.Header.Get(TraceIDHeader)
		if !acceptableID(traceID) {
			traceID = ""
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		if traceID != "" {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
		}

		w.Header().Set(RequestIDHeader, requestID)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// acceptableID reports whether id is non-empty, short and printable ASCII.
func acceptableID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantKept bool
	}{
		{"generated when absent", "", false},
		{"incoming id reused", "req-abc-123", true},
		{"overlong id replaced", strings.Repeat("a", maxIDLength+1), false},
		{"control characters replaced", "abc\ndef", false},
		{"spaces replaced", "abc def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("response header %q differs from context value %q", got, seen)
			}
			if tt.wantKept {
				if seen != tt.incoming {
					t.Errorf("request id = %q, want %q", seen, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("expected generated UUID, got %q", seen)
			}
		})
	}
}

func TestRequestID_TraceID(t *testing.T) {
	var trace string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "trace-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if trace != "trace-1" {
		t.Errorf("trace id = %q, want trace-1", trace)
	}
	if got := rec.Header().Get(TraceIDHeader); got != "trace-1" {
		t.Errorf("trace header = %q, want trace-1", got)
	}
}

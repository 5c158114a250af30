package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

const internalErrorBody = `{"error":{"code":"INTERNAL_ERROR","message":"An internal error occurred"}}`

// Recoverer is a middleware that recovers from panics.
// It logs the panic with its stack and returns a 500 in the JSON error
// envelope. http.ErrAbortHandler is re-raised so net/http can abort the
// connection.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(internalErrorBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

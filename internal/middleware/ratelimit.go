package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/letterbox/letterbox/internal/cache"
)

// IPRateLimiter checks a per-IP token bucket.
type IPRateLimiter interface {
	CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter IPRateLimiter
	Enabled bool
	RPS     int // Requests per second
	Burst   int
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Each scope has its own bucket. When the limiter backend is unavailable the
// request is allowed and the degradation is logged.
func RateLimitIP(cfg RateLimitConfig, scope string) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), scope, ip, cfg.RPS, cfg.Burst)
			if err != nil || result == nil {
				logger.Warn("rate limit check degraded, allowing request",
					slog.String("scope", scope),
					slog.Any("error", err),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.Burst, result.Remaining, result.ResetAt)

			if !result.Allowed {
				logger.Warn("rate limit exceeded",
					slog.String("scope", scope),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	msg := fmt.Sprintf(`{"error":{"code":"RATE_LIMITED","message":"Rate limit exceeded. Retry after %d seconds."}}`,
		int(retryAfter.Seconds()))
	_, _ = w.Write([]byte(msg))
}

// clientIP returns the host part of RemoteAddr. Forwarded headers only reach
// it through RealIP, and only from configured proxies.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

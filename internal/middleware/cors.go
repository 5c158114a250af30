package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options. It lets a signup form hosted
// on another origin post to /subscriptions.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to make cross-origin requests.
	// Entries of the form "*.example.com" match any subdomain.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	// MaxAge is the value for Access-Control-Max-Age in seconds.
	MaxAge int
}

// DefaultCORSConfig returns CORS defaults with no origin allowed.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Request-ID",
			"Accept",
			"Accept-Language",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 86400,
	}
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Credentials are never allowed cross-origin, so the Basic-auth publish
// routes stay same-origin only.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methodsStr := strings.Join(cfg.AllowedMethods, ", ")
	headersStr := strings.Join(cfg.AllowedHeaders, ", ")
	exposedStr := strings.Join(cfg.ExposedHeaders, ", ")
	maxAgeStr := ""
	if cfg.MaxAge > 0 {
		maxAgeStr = strconv.Itoa(cfg.MaxAge)
	}

	originMap := make(map[string]bool, len(cfg.AllowedOrigins))
	var wildcards []string
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "" {
			continue
		}
		if strings.HasPrefix(origin, "*.") {
			wildcards = append(wildcards, strings.TrimPrefix(origin, "*"))
			continue
		}
		originMap[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")

			if !isOriginAllowed(origin, originMap, wildcards) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				// The browser blocks the response without CORS headers.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if exposedStr != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposedStr)
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methodsStr)
				w.Header().Set("Access-Control-Allow-Headers", headersStr)
				if maxAgeStr != "" {
					w.Header().Set("Access-Control-Max-Age", maxAgeStr)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed matches origin exactly or against a "*.domain" suffix.
// A suffix only matches a real subdomain: "*.example.com" accepts
// "https://a.example.com" but not "https://notexample.com".
func isOriginAllowed(origin string, exact map[string]bool, suffixes []string) bool {
	origin = strings.ToLower(origin)
	if exact[origin] {
		return true
	}
	for _, suffix := range suffixes {
		if !strings.HasSuffix(origin, suffix) {
			continue
		}
		host := strings.TrimSuffix(origin, suffix)
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if host != "" {
			return true
		}
	}
	return false
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DefaultReadyTimeout bounds all readiness checks together.
const DefaultReadyTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependency is a named HealthChecker. A nil Checker reports "not configured".
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	deps    []Dependency
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. Ping failures are logged in
// full; the response only says "error".
func NewHealthHandler(timeout time.Duration, logger *slog.Logger, deps ...Dependency) *HealthHandler {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{deps: deps, timeout: timeout, logger: logger}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness endpoint. It performs no dependency checks.
//
// GET /healthz, GET /health_check
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz returns 200 only if every configured dependency answers a ping.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true

	for _, dep := range h.deps {
		if dep.Checker == nil {
			checks[dep.Name] = "not configured"
			continue
		}
		if err := dep.Checker.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", dep.Name, "error", err)
			checks[dep.Name] = "error"
			healthy = false
			continue
		}
		checks[dep.Name] = "ok"
	}

	resp := HealthResponse{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

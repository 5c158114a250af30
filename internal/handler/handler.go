// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/letterbox/letterbox/internal/handler/dto"
)

// Handler serves the routes that have no domain dependency.
type Handler struct {
	version string
	logger  *slog.Logger
}

// New creates a new Handler instance.
func New(version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{version: version, logger: logger}
}

// Root reports the service name and version.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.InfoResponse{
		Service: "letterbox",
		Version: h.version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: dto.ErrorBody{Code: code, Message: message},
	})
}

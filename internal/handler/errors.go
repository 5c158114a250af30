package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/letterbox/letterbox/internal/handler/dto"
	"github.com/letterbox/letterbox/internal/service"
)

// writeServiceError maps service errors to HTTP responses. Storage and
// delivery failures were already logged by the service that hit them, so
// only unclassified errors are logged here. Details are never returned.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: dto.ErrorBody{
				Code:    "VALIDATION_FAILED",
				Message: "Request validation failed",
				Fields:  verr.Fields,
			},
		})
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	case errors.Is(err, service.ErrEmailDelivery):
		writeError(w, http.StatusInternalServerError, "EMAIL_DELIVERY_FAILED", "Email could not be delivered")
	case errors.Is(err, service.ErrStorage):
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeBodyError reports a request body that could not be read or decoded.
func writeBodyError(w http.ResponseWriter, err error, code, message string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, code, message)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/letterbox/letterbox/internal/model"
)

// SubscriptionService is the double opt-in workflow behind the signup routes.
type SubscriptionService interface {
	Subscribe(ctx context.Context, name, email string) (*model.Subscriber, error)
	Confirm(ctx context.Context, token string) error
}

// SubscriptionHandler handles signup and confirmation requests.
type SubscriptionHandler struct {
	svc    SubscriptionService
	logger *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(svc SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{svc: svc, logger: logger}
}

// Subscribe handles POST /subscriptions with form fields name and email.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBodyError(w, err, "INVALID_FORM", "Invalid form body")
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), r.PostForm.Get("name"), r.PostForm.Get("email"))
	if err != nil {
		if sub != nil {
			h.logger.Warn("subscription_stored_without_email", "subscriber_id", sub.ID)
		}
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("subscription_created", "subscriber_id", sub.ID)
	w.WriteHeader(http.StatusOK)
}

// Confirm handles GET /subscriptions/confirm?token=...
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("token") {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN", "Confirmation token is required")
		return
	}

	if err := h.svc.Confirm(r.Context(), query.Get("token")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

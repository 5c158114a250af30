package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/letterbox/letterbox/internal/model"
	"github.com/letterbox/letterbox/internal/secret"
	"github.com/letterbox/letterbox/internal/service"
)

// BasicChallenge is sent with every 401 from the publish routes.
const BasicChallenge = `Basic realm="publish"`

var errTrailingData = errors.New("unexpected data after JSON body")

// NewsletterService authenticates operators and broadcasts newsletters.
type NewsletterService interface {
	Authenticate(ctx context.Context, creds model.Credentials) (*model.User, error)
	Broadcast(ctx context.Context, user *model.User, req *model.NewsletterRequest) (*service.DeliveryReport, error)
}

// NewsletterHandler handles publish requests.
type NewsletterHandler struct {
	svc    NewsletterService
	logger *slog.Logger
}

// NewNewsletterHandler creates a new NewsletterHandler.
func NewNewsletterHandler(svc NewsletterService, logger *slog.Logger) *NewsletterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsletterHandler{svc: svc, logger: logger}
}

// Publish handles POST /newsletters and POST /auth/newsletters.
// Credentials are checked before the body is decoded. Once authenticated,
// the request is exempt from the server write timeout.
func (h *NewsletterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", BasicChallenge)
		writeError(w, http.StatusUnauthorized, "MISSING_CREDENTIALS", "Basic credentials are required")
		return
	}

	user, err := h.svc.Authenticate(r.Context(), model.Credentials{
		Username: username,
		Password: secret.New(password),
	})
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			w.Header().Set("WWW-Authenticate", BasicChallenge)
		}
		writeServiceError(w, h.logger, err)
		return
	}

	req, err := decodeNewsletter(r.Body)
	if err != nil {
		writeBodyError(w, err, "INVALID_JSON", "Invalid request body")
		return
	}

	// Sends run one after another, so a broadcast can outlast the server's
	// write timeout. Each send is still bounded by the email client.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("write deadline not lifted", "error", err)
	}

	report, err := h.svc.Broadcast(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("newsletter_published",
		"user_id", user.ID,
		"recipients", report.Recipients,
		"duration_ms", report.Duration.Milliseconds(),
	)
	w.WriteHeader(http.StatusOK)
}

func decodeNewsletter(body io.Reader) (*model.NewsletterRequest, error) {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var req model.NewsletterRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingData
	}
	return &req, nil
}

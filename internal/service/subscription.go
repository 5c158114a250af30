package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"

	"github.com/letterbox/letterbox/internal/auth"
	"github.com/letterbox/letterbox/internal/metrics"
	"github.com/letterbox/letterbox/internal/model"
	"github.com/letterbox/letterbox/internal/repository"
)

const (
	// maxTokenAttempts bounds inserts retried after a token collision.
	maxTokenAttempts = 3
	// ConfirmationSubject is the subject line of the confirmation email.
	ConfirmationSubject = "Welcome!"
	// DefaultStoreTimeout bounds each store call when none is configured.
	DefaultStoreTimeout = 5 * time.Second
)

// SubscriptionConfig holds SubscriptionService settings.
type SubscriptionConfig struct {
	// BaseURL is the public address confirmation links point at.
	BaseURL      string
	StoreTimeout time.Duration
}

// SubscriptionService runs the double opt-in workflow.
type SubscriptionService struct {
	store        SubscriptionStore
	sender       EmailSender
	validator    *Validator
	baseURL      string
	storeTimeout time.Duration
	metrics      metrics.Recorder
	logger       *slog.Logger

	newToken func() (string, error)
	now      func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(
	store SubscriptionStore,
	sender EmailSender,
	validator *Validator,
	cfg SubscriptionConfig,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *SubscriptionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = NewValidator()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &SubscriptionService{
		store:        store,
		sender:       sender,
		validator:    validator,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		storeTimeout: cfg.StoreTimeout,
		metrics:      recorder,
		logger:       logger.With("component", "subscriptions"),
		newToken:     auth.GenerateToken,
		now:          time.Now,
	}
}

// Subscribe validates the input, stores a pending subscriber with a fresh
// token and sends the confirmation email.
//
// A failed email send is reported with ErrEmailDelivery alongside the stored
// subscriber: the signup is kept and not rolled back.
func (s *SubscriptionService) Subscribe(ctx context.Context, name, email string) (*model.Subscriber, error) {
	if err := s.validator.ValidateSubscriber(name, email); err != nil {
		return nil, err
	}

	sub := &model.Subscriber{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		Status:       model.StatusPendingConfirmation,
		SubscribedAt: s.now().UTC(),
	}

	backoff := retry.WithMaxRetries(maxTokenAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := s.newToken()
		if err != nil {
			return err
		}
		sub.ConfirmationToken = token

		storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()

		err = s.store.InsertSubscriber(storeCtx, sub)
		if errors.Is(err, repository.ErrTokenExists) {
			s.logger.Warn("confirmation token collision, retrying", "subscriber_id", sub.ID)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		s.logger.Error("failed to store subscriber", "subscriber_id", sub.ID, "error", err)
		return nil, storageError("store subscriber", err)
	}

	s.metrics.IncSubscriptionCreated()
	s.logger.Info("subscriber stored", "subscriber_id", sub.ID)

	htmlBody, textBody := confirmationBodies(s.ConfirmationLink(sub.ConfirmationToken))
	if err := s.sender.SendEmail(ctx, sub.Email, ConfirmationSubject, htmlBody, textBody); err != nil {
		s.metrics.IncConfirmationEmail(metrics.StatusFailed)
		s.logger.Warn("confirmation email not delivered", "subscriber_id", sub.ID, "error", err)
		return sub, fmt.Errorf("send confirmation email: %w: %w", ErrEmailDelivery, err)
	}
	s.metrics.IncConfirmationEmail(metrics.StatusSuccess)

	return sub, nil
}

// Confirm moves the subscriber owning token to confirmed. Confirming an
// already confirmed subscriber succeeds without touching the store again.
// Unknown and malformed tokens both yield ErrUnauthorized.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	if !auth.ValidTokenFormat(token) {
		s.logger.Debug("confirmation rejected", "reason", "malformed_token")
		return ErrUnauthorized
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sub, err := s.store.GetSubscriberByToken(storeCtx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			s.logger.Info("confirmation rejected", "reason", "unknown_token")
			return ErrUnauthorized
		}
		s.logger.Error("failed to look up confirmation token", "error", err)
		return storageError("look up token", err)
	}

	if sub.IsConfirmed() {
		return nil
	}
	next := sub.Status.Confirm()

	if err := s.store.UpdateSubscriberStatus(storeCtx, token, next); err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			return ErrUnauthorized
		}
		s.logger.Error("failed to confirm subscriber", "subscriber_id", sub.ID, "error", err)
		return storageError("confirm subscriber", err)
	}

	s.metrics.IncSubscriptionConfirmed()
	s.logger.Info("subscriber confirmed", "subscriber_id", sub.ID)
	return nil
}

// ConfirmationLink builds the URL embedded in the confirmation email.
func (s *SubscriptionService) ConfirmationLink(token string) string {
	return s.baseURL + "/subscriptions/confirm?token=" + url.QueryEscape(token)
}

func confirmationBodies(link string) (htmlBody, textBody string) {
	htmlBody = fmt.Sprintf(
		`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`,
		html.EscapeString(link),
	)
	textBody = fmt.Sprintf("Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return htmlBody, textBody
}

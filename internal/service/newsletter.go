package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/letterbox/letterbox/internal/auth"
	"github.com/letterbox/letterbox/internal/metrics"
	"github.com/letterbox/letterbox/internal/model"
	"github.com/letterbox/letterbox/internal/repository"
	"github.com/letterbox/letterbox/internal/secret"
)

// DeliveryReport summarises a completed broadcast.
type DeliveryReport struct {
	Recipients int           `json:"recipients"`
	Sent       int           `json:"sent"`
	Duration   time.Duration `json:"-"`
}

// NewsletterConfig holds NewsletterService settings.
type NewsletterConfig struct {
	HashSecret   secret.String
	StoreTimeout time.Duration
}

// NewsletterService authenticates operators and fans a newsletter out to
// every confirmed subscriber.
type NewsletterService struct {
	users        UserStore
	subs         SubscriptionStore
	sender       EmailSender
	validator    *Validator
	hashSecret   secret.String
	storeTimeout time.Duration
	metrics      metrics.Recorder
	logger       *slog.Logger

	// dummyHash is verified against when the username is unknown.
	dummyHash string
}

// NewNewsletterService creates a new NewsletterService.
func NewNewsletterService(
	users UserStore,
	subs SubscriptionStore,
	sender EmailSender,
	validator *Validator,
	cfg NewsletterConfig,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *NewsletterService {
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
	logger = logger.With("component", "newsletters")
	return &NewsletterService{
		users:        users,
		subs:         subs,
		sender:       sender,
		validator:    validator,
		hashSecret:   cfg.HashSecret,
		storeTimeout: cfg.StoreTimeout,
		metrics:      recorder,
		logger:       logger,
		dummyHash:    newDummyHash(cfg.HashSecret, logger),
	}
}

// Authenticate checks operator credentials. Unknown users and wrong
// passwords both return ErrUnauthorized, and both pay for one hash
// verification so response timing does not reveal which case occurred.
func (s *NewsletterService) Authenticate(ctx context.Context, creds model.Credentials) (*model.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetUserByUsername(storeCtx, creds.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.CheckPassword(creds.Password.Expose(), s.dummyHash, s.hashSecret)
			s.rejectAuth("unknown_user")
			return nil, ErrUnauthorized
		}
		s.logger.Error("failed to look up operator", "error", err)
		return nil, storageError("look up operator", err)
	}

	ok, err := auth.VerifyPassword(creds.Password.Expose(), user.PasswordHash, s.hashSecret)
	if err != nil {
		s.logger.Error("stored password hash unusable", "user_id", user.ID, "error", err)
		s.rejectAuth("hash_error")
		return nil, ErrUnauthorized
	}
	if !ok {
		s.rejectAuth("wrong_password")
		return nil, ErrUnauthorized
	}

	return user, nil
}

// Publish authenticates the caller and then broadcasts req.
func (s *NewsletterService) Publish(ctx context.Context, creds model.Credentials, req *model.NewsletterRequest) (*DeliveryReport, error) {
	user, err := s.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.Broadcast(ctx, user, req)
}

// Broadcast sends req to every confirmed subscriber one at a time on behalf
// of an authenticated operator. The first failed send stops the broadcast
// and is returned as a *DeliveryError; recipients already reached are not
// retried.
func (s *NewsletterService) Broadcast(ctx context.Context, user *model.User, req *model.NewsletterRequest) (*DeliveryReport, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}

	if err := s.validator.ValidateNewsletter(req); err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	recipients, err := s.subs.ListConfirmedEmails(storeCtx)
	if err != nil {
		s.logger.Error("failed to list confirmed subscribers", "error", err)
		return nil, storageError("list confirmed subscribers", err)
	}

	start := time.Now()
	report := &DeliveryReport{Recipients: len(recipients)}
	defer func() {
		report.Duration = time.Since(start)
		s.metrics.ObserveBroadcastDuration(report.Duration)
	}()

	for i, to := range recipients {
		err := ctx.Err()
		if err == nil {
			err = s.sender.SendEmail(ctx, to, req.Title, req.Content.HTML, req.Content.Text)
		}
		if err != nil {
			s.metrics.IncNewsletterDelivery(metrics.StatusFailed)
			s.logger.Error("newsletter broadcast aborted",
				"user_id", user.ID,
				"sent", report.Sent,
				"remaining", len(recipients)-i,
				"error", err,
			)
			return report, &DeliveryError{Sent: report.Sent, Remaining: len(recipients) - i, Err: err}
		}
		report.Sent++
		s.metrics.IncNewsletterDelivery(metrics.StatusSuccess)
	}

	s.logger.Info("newsletter broadcast complete",
		"user_id", user.ID,
		"recipients", report.Recipients,
	)
	return report, nil
}

func (s *NewsletterService) rejectAuth(reason string) {
	s.metrics.IncAuthFailure()
	s.logger.Warn("publish authentication failed", "reason", reason)
}

// newDummyHash is computed once at construction so that every unknown
// username costs exactly one argon2 verification.
func newDummyHash(key secret.String, logger *slog.Logger) string {
	hash, err := auth.HashPassword("letterbox-dummy-password", key)
	if err != nil {
		logger.Error("failed to prepare dummy hash", "error", err)
		return ""
	}
	return hash
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/letterbox/letterbox/internal/model"
)

// Common errors for subscription repository operations.
var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrTokenExists        = errors.New("confirmation token already exists")
)

const tokenIndex = "idx_subscriptions_confirmation_token"

// InsertSubscriber stores a new subscription together with its confirmation
// token in a single statement, so a row never exists without its token.
func (r *Repository) InsertSubscriber(ctx context.Context, s *model.Subscriber) error {
	query := `
		INSERT INTO subscriptions (id, email, name, confirmation_token, status, subscribed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Email,
		s.Name,
		s.ConfirmationToken,
		string(s.Status),
		s.SubscribedAt,
	)

	if err != nil {
		if isUniqueViolation(err, tokenIndex) {
			return ErrTokenExists
		}
		return fmt.Errorf("failed to insert subscriber: %w", err)
	}

	return nil
}

// GetSubscriberByToken retrieves the subscription owning a confirmation token.
func (r *Repository) GetSubscriberByToken(ctx context.Context, token string) (*model.Subscriber, error) {
	query := `
		SELECT id, email, name, confirmation_token, status, subscribed_at
		FROM subscriptions
		WHERE confirmation_token = $1
	`

	var (
		s      model.Subscriber
		status string
	)
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.ID,
		&s.Email,
		&s.Name,
		&s.ConfirmationToken,
		&status,
		&s.SubscribedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to get subscriber by token: %w", err)
	}

	s.Status, err = model.ParseSubscriptionStatus(status)
	if err != nil {
		return nil, fmt.Errorf("subscriber %s: %w", s.ID, err)
	}

	return &s, nil
}

// UpdateSubscriberStatus sets the status of the subscription owning token.
// Running it twice with the same status is harmless.
func (r *Repository) UpdateSubscriberStatus(ctx context.Context, token string, status model.SubscriptionStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("update status: %w", model.ErrUnknownStatus)
	}

	query := `
		UPDATE subscriptions
		SET status = $2
		WHERE confirmation_token = $1
	`

	result, err := r.pool.Exec(ctx, query, token, string(status))
	if err != nil {
		return fmt.Errorf("failed to update subscriber status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSubscriberNotFound
	}

	return nil
}

// ListConfirmedEmails returns every distinct confirmed address, ordered by
// the first time each address subscribed.
func (r *Repository) ListConfirmedEmails(ctx context.Context) ([]string, error) {
	query := `
		SELECT email
		FROM subscriptions
		WHERE status = $1
		GROUP BY email
		ORDER BY MIN(subscribed_at), email
	`

	rows, err := r.pool.Query(ctx, query, string(model.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed emails: %w", err)
	}

	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan confirmed emails: %w", err)
	}

	return emails, nil
}

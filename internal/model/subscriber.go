// Package model defines domain entities for the application.
package model

import (
	"errors"
	"fmt"
	"time"
)

// SubscriptionStatus is the lifecycle state of a subscriber.
// The zero value is not a valid status.
type SubscriptionStatus string

const (
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	StatusConfirmed           SubscriptionStatus = "confirmed"
)

// ErrUnknownStatus is returned when a stored status string is not recognised.
var ErrUnknownStatus = errors.New("unknown subscription status")

// ParseSubscriptionStatus converts a stored value into a SubscriptionStatus.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch status := SubscriptionStatus(s); status {
	case StatusPendingConfirmation, StatusConfirmed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// IsValid reports whether s is one of the known statuses.
func (s SubscriptionStatus) IsValid() bool {
	return s == StatusPendingConfirmation || s == StatusConfirmed
}

// Confirm returns the status that results from a successful confirmation.
// Confirming an already confirmed subscriber is a no-op.
func (s SubscriptionStatus) Confirm() SubscriptionStatus {
	switch s {
	case StatusPendingConfirmation, StatusConfirmed:
		return StatusConfirmed
	default:
		return s
	}
}

// Subscriber represents a mailing-list subscription.
type Subscriber struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	ConfirmationToken string             `json:"-"`
	Status            SubscriptionStatus `json:"status"`
	SubscribedAt      time.Time          `json:"subscribed_at"`
}

// IsConfirmed returns true if the subscriber may receive newsletters.
func (s *Subscriber) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}

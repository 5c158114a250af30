package service

import (
	"context"

	"github.com/letterbox/letterbox/internal/model"
)

// SubscriptionStore persists subscribers.
type SubscriptionStore interface {
	InsertSubscriber(ctx context.Context, s *model.Subscriber) error
	GetSubscriberByToken(ctx context.Context, token string) (*model.Subscriber, error)
	UpdateSubscriberStatus(ctx context.Context, token string, status model.SubscriptionStatus) error
	ListConfirmedEmails(ctx context.Context) ([]string, error)
}

// UserStore persists broadcast operators.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// EmailSender delivers one message.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/letterbox/letterbox/internal/model"
	"github.com/letterbox/letterbox/internal/repository"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memSubscriptionStore mimics the repository's token index in memory.
type memSubscriptionStore struct {
	mu      sync.Mutex
	byToken map[string]*model.Subscriber
	order   []string

	insertErr error
	lookupErr error
	listErr   error

	inserts int
	lookups int
	updates int
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{byToken: make(map[string]*model.Subscriber)}
}

func (m *memSubscriptionStore) InsertSubscriber(ctx context.Context, s *model.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, exists := m.byToken[s.ConfirmationToken]; exists {
		return repository.ErrTokenExists
	}
	cp := *s
	m.byToken[s.ConfirmationToken] = &cp
	m.order = append(m.order, s.ConfirmationToken)
	return nil
}

func (m *memSubscriptionStore) GetSubscriberByToken(ctx context.Context, token string) (*model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	s, ok := m.byToken[token]
	if !ok {
		return nil, repository.ErrSubscriberNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionStore) UpdateSubscriberStatus(ctx context.Context, token string, status model.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	s, ok := m.byToken[token]
	if !ok {
		return repository.ErrSubscriberNotFound
	}
	s.Status = status
	return nil
}

func (m *memSubscriptionStore) ListConfirmedEmails(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	seen := make(map[string]bool)
	var emails []string
	for _, token := range m.order {
		s := m.byToken[token]
		if s.Status == model.StatusConfirmed && !seen[s.Email] {
			seen[s.Email] = true
			emails = append(emails, s.Email)
		}
	}
	return emails, nil
}

func (m *memSubscriptionStore) statuses() map[string]model.SubscriptionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.SubscriptionStatus, len(m.byToken))
	for token, s := range m.byToken {
		out[token] = s.Status
	}
	return out
}

// memUserStore keys operators by username.
type memUserStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	lookupErr error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func (m *memUserStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUsernameExists
	}
	cp := *user
	m.users[user.Username] = &cp
	return nil
}

func (m *memUserStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type sentEmail struct {
	To, Subject, HTML, Text string
}

// recordingSender records every send and fails the call numbered failOn (1-based).
type recordingSender struct {
	mu     sync.Mutex
	sent   []sentEmail
	calls  int
	failOn int
	err    error
}

var errTransport = errors.New("email API returned HTTP 500")

func (r *recordingSender) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failOn > 0 && r.calls == r.failOn {
		if r.err != nil {
			return r.err
		}
		return errTransport
	}
	r.sent = append(r.sent, sentEmail{To: to, Subject: subject, HTML: htmlBody, Text: textBody})
	return nil
}

func (r *recordingSender) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, e := range r.sent {
		out = append(out, e.To)
	}
	return out
}

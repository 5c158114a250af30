package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/letterbox/letterbox/internal/handler/dto"
	"github.com/letterbox/letterbox/internal/model"
	"github.com/letterbox/letterbox/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubSubscriptions struct {
	sub        *model.Subscriber
	err        error
	confirmErr error

	gotName, gotEmail string
	gotToken          string
	subscribeCalls    int
	confirmCalls      int
}

func (s *stubSubscriptions) Subscribe(ctx context.Context, name, email string) (*model.Subscriber, error) {
	s.subscribeCalls++
	s.gotName, s.gotEmail = name, email
	if s.sub == nil && s.err == nil {
		return &model.Subscriber{ID: "sub-1", Name: name, Email: email}, nil
	}
	return s.sub, s.err
}

func (s *stubSubscriptions) Confirm(ctx context.Context, token string) error {
	s.confirmCalls++
	s.gotToken = token
	return s.confirmErr
}

type stubNewsletters struct {
	authErr      error
	broadcastErr error
	report       *service.DeliveryReport

	// delay simulates a slow broadcast.
	delay time.Duration

	gotCreds       model.Credentials
	gotRequest     *model.NewsletterRequest
	authCalls      int
	broadcastCalls int
}

func (s *stubNewsletters) Authenticate(ctx context.Context, creds model.Credentials) (*model.User, error) {
	s.authCalls++
	s.gotCreds = creds
	if s.authErr != nil {
		return nil, s.authErr
	}
	return &model.User{ID: "user-1", Username: creds.Username}, nil
}

func (s *stubNewsletters) Broadcast(ctx context.Context, user *model.User, req *model.NewsletterRequest) (*service.DeliveryReport, error) {
	s.broadcastCalls++
	s.gotRequest = req
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.broadcastErr != nil {
		return s.report, s.broadcastErr
	}
	if s.report != nil {
		return s.report, nil
	}
	return &service.DeliveryReport{Recipients: 1, Sent: 1}, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorBody {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

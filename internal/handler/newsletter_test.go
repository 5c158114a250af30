package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterbox/letterbox/internal/service"
)

const validNewsletter = `{"title":"T","content":{"html":"H","text":"X"}}`

func publish(h *NewsletterHandler, body string, withAuth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/newsletters", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.SetBasicAuth("admin", "s3cret-pass")
	}
	rec := httptest.NewRecorder()
	h.Publish(rec, req)
	return rec
}

func TestNewsletterHandler_Publish(t *testing.T) {
	svc := &stubNewsletters{}
	h := NewNewsletterHandler(svc, testLogger)

	rec := publish(h, validNewsletter, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "admin", svc.gotCreds.Username)
	assert.Equal(t, "s3cret-pass", svc.gotCreds.Password.Expose())
	require.NotNil(t, svc.gotRequest)
	assert.Equal(t, "T", svc.gotRequest.Title)
	assert.Equal(t, "H", svc.gotRequest.Content.HTML)
	assert.Equal(t, "X", svc.gotRequest.Content.Text)
}

func TestNewsletterHandler_MissingCredentials(t *testing.T) {
	svc := &stubNewsletters{}
	h := NewNewsletterHandler(svc, testLogger)

	rec := publish(h, validNewsletter, false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, BasicChallenge, rec.Header().Get("WWW-Authenticate"))
	assert.Zero(t, svc.authCalls)
	assert.Zero(t, svc.broadcastCalls)
}

func TestNewsletterHandler_BadCredentials(t *testing.T) {
	svc := &stubNewsletters{authErr: service.ErrUnauthorized}
	h := NewNewsletterHandler(svc, testLogger)

	rec := publish(h, validNewsletter, true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, BasicChallenge, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
	assert.Zero(t, svc.broadcastCalls)
}

func TestNewsletterHandler_CredentialsCheckedBeforeBody(t *testing.T) {
	svc := &stubNewsletters{authErr: service.ErrUnauthorized}
	h := NewNewsletterHandler(svc, testLogger)

	rec := publish(h, `{not json`, true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, svc.authCalls)
}

func TestNewsletterHandler_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"syntax error", `{"title":`},
		{"wrong type", `{"title":1,"content":{"html":"H","text":"X"}}`},
		{"unknown field", `{"title":"T","content":{"html":"H","text":"X"},"draft":true}`},
		{"trailing data", validNewsletter + `{}`},
		{"array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubNewsletters{}
			h := NewNewsletterHandler(svc, testLogger)

			rec := publish(h, tt.body, true)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
			assert.Zero(t, svc.broadcastCalls)
		})
	}
}

func TestNewsletterHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing fields",
			err:      &service.ValidationError{Fields: map[string][]string{"content.text": {"is required"}}},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_FAILED",
		},
		{
			name:     "storage",
			err:      fmt.Errorf("list confirmed subscribers: %w", service.ErrStorage),
			wantCode: http.StatusInternalServerError,
			wantErr:  "INTERNAL_ERROR",
		},
		{
			name:     "transport",
			err:      &service.DeliveryError{Sent: 1, Remaining: 2, Err: errors.New("HTTP 500")},
			wantCode: http.StatusInternalServerError,
			wantErr:  "EMAIL_DELIVERY_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubNewsletters{broadcastErr: tt.err}
			h := NewNewsletterHandler(svc, testLogger)

			rec := publish(h, validNewsletter, true)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
			assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestNewsletterHandler_DeliveryFailureNotLoggedTwice(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	for _, err := range []error{
		&service.DeliveryError{Sent: 1, Remaining: 2, Err: errors.New("HTTP 500")},
		fmt.Errorf("list confirmed subscribers: %w", service.ErrStorage),
	} {
		svc := &stubNewsletters{broadcastErr: err}
		h := NewNewsletterHandler(svc, logger)

		rec := publish(h, validNewsletter, true)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	}

	assert.NotContains(t, logs.String(), "level=ERROR")
}

func TestNewsletterHandler_BroadcastOutlastsWriteTimeout(t *testing.T) {
	svc := &stubNewsletters{delay: 300 * time.Millisecond}
	h := NewNewsletterHandler(svc, testLogger)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(h.Publish))
	srv.Config.WriteTimeout = 50 * time.Millisecond
	srv.Start()
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/newsletters", strings.NewReader(validNewsletter))
	require.NoError(t, err)
	req.SetBasicAuth("admin", "s3cret-pass")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

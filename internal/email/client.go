// Package email delivers messages through an HTTP email API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/letterbox/letterbox/internal/secret"
)

const (
	// DefaultTimeout is the total request timeout when none is configured.
	DefaultTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
)

// HeaderServerToken carries the API token on every request.
const HeaderServerToken = "X-Postmark-Server-Token"

// Sentinel errors for email delivery.
var (
	ErrUnexpectedStatus = errors.New("email API returned non-success status")
	ErrInvalidConfig    = errors.New("invalid email client configuration")
)

// StatusError reports a non-2xx response from the email API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email API returned HTTP %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Sender  string
	Token   secret.String
	Timeout time.Duration
}

// Client sends single emails. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	sender  string
	token   secret.String
	logger  *slog.Logger
}

// message is the JSON body accepted by the email API.
type message struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html"`
	TextBody string `json:"text"`
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("%w: base URL and sender are required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:    NewHTTPClient(cfg.Timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		sender:  cfg.Sender,
		token:   cfg.Token,
		logger:  logger.With("component", "email"),
	}, nil
}

// NewHTTPClient creates an HTTP client for the email API.
// It has a bounded total timeout and does not follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: TLSHandshakeTimeout,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// SendEmail posts one message to {base}/email.
func (c *Client) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(message{
		From:     c.sender,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderServerToken, c.token.Expose())
	req.Header.Set("User-Agent", "Letterbox/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	// Keep a short excerpt for diagnostics, drain the rest for connection reuse.
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(excerpt)}
	}

	c.logger.Debug("email accepted",
		"http_status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

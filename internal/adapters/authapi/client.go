// Package authapi is the HTTP client for the remote authentication server.
package authapi

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
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
)

const (
	loginPath         = "/auth/login"
	externalLoginPath = "/external-auth/login"
	validatePath      = "/auth/validate-token"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var _ ports.AuthAPI = (*Client)(nil)

// Config holds configuration for the auth API client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // Optional, defaults to a client with Timeout
	Logger     *slog.Logger
}

// Client talks to the auth server's login, external-login and token-validation endpoints.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new auth API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("auth API base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse auth API base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("auth API base URL must be http or https, got %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, httpClient: httpClient, logger: logger}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, email, password string) (*domainauth.Envelope, error) {
	return c.postEnvelope(ctx, loginPath, loginRequest{Email: email, Password: password})
}

// ExternalLogin posts federated claims to the external-login endpoint.
func (c *Client) ExternalLogin(ctx context.Context, in domainauth.ExternalLogin) (*domainauth.Envelope, error) {
	return c.postEnvelope(ctx, externalLoginPath, in)
}

// validateEnvelope tolerates any data shape; only the success flag matters.
type validateEnvelope struct {
	Succeeded bool            `json:"isSuccess"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ValidateToken sends the token as a bearer credential and reports the server's verdict.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, apperrors.Authentication("no token to validate")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(validatePath), nil)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "build validate request")
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(c.bearerClient(token), req)
	if err != nil {
		return false, err
	}

	var env validateEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "decode validate response")
	}
	return env.Succeeded, nil
}

// bearerClient wraps the base transport so the token travels as "Authorization: Bearer".
func (c *Client) bearerClient(token string) *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

func (c *Client) endpoint(p string) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	return u.String()
}

func (c *Client) postEnvelope(ctx context.Context, p string, payload any) (*domainauth.Envelope, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(p), bytes.NewReader(buf))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, err
	}

	var env domainauth.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "decode response envelope")
	}
	return &env, nil
}

// errorBody is the subset of a failed response we surface.
type errorBody struct {
	Message string `json:"message"`
}

// do executes req and classifies failures. It returns the body of a 2xx response.
func (c *Client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.WarnContext(req.Context(), "auth api request failed",
			"path", req.URL.Path, "duration", time.Since(start), "error", err)
		return nil, classifyTransport(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(req.Context(), "close auth api response body", "error", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(err)
	}

	c.logger.DebugContext(req.Context(), "auth api response",
		"path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classifyStatus(resp.StatusCode, body)
}

func classifyStatus(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return apperrors.Unauthorized("invalid credentials")
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && strings.TrimSpace(eb.Message) != "" {
		return apperrors.Wrap(fmt.Errorf("status %d", status), apperrors.ErrCodeServerRejected, eb.Message)
	}
	return apperrors.Newf(apperrors.ErrCodeUnknown, "unexpected status %d", status)
}

func classifyTransport(err error) error {
	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "auth request canceled")
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		errors.As(err, &opErr),
		errors.As(err, &dnsErr):
		return apperrors.Unreachable(err)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, "auth request failed")
	}
}

package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	maxErrorBody    = 4 << 10
)

// Client talks to the authentication endpoints of the dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (its Timeout is left as given)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for baseURL. timeout bounds every call, the refresh
// exchange included.
func New(baseURL string, timeout time.Duration, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "authapi").Logger()
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges user credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.postJSON(ctx, RouteLogin, "", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		if dasherrors.StatusCode(err) == http.StatusUnauthorized || dasherrors.StatusCode(err) == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %v", dasherrors.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("Client.Login: %w", err)
	}
	if resp.Token == "" || resp.Refresh == "" {
		return nil, fmt.Errorf("Client.Login: %w: response missing tokens", dasherrors.ErrInternal)
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new pair. Any non-2xx status is
// a failure; the caller decides what that means for the session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, userID int64) (sessions.Tokens, error) {
	var resp RefreshResponse
	if err := c.postJSON(ctx, RouteTokenRefresh, "", RefreshRequest{Refresh: refreshToken, UserID: userID}, &resp); err != nil {
		return sessions.Tokens{}, fmt.Errorf("Client.RefreshToken: %w", err)
	}
	if resp.Token == "" {
		return sessions.Tokens{}, fmt.Errorf("Client.RefreshToken: %w: response missing token", dasherrors.ErrInternal)
	}

	c.logger.Debug().
		Bool("has_new_refresh_token", resp.Refresh != "").
		Msg("token refresh exchange succeeded")

	if resp.Refresh == "" {
		resp.Refresh = refreshToken
	}
	return sessions.Tokens{Token: resp.Token, Refresh: resp.Refresh}, nil
}

// Logout tells the server to revoke the refresh token.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := c.postJSON(ctx, RouteLogout, accessToken, LogoutRequest{Refresh: refreshToken}, nil); err != nil {
		return fmt.Errorf("Client.Logout: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", dasherrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("auth endpoint returned error")
		return dasherrors.NewStatusError(resp.StatusCode, ErrorMessage(errBody, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ErrorMessage extracts a human readable message from an API error body,
// falling back to the status text.
func ErrorMessage(body []byte, statusCode int) string {
	var er ErrorResponse
	if len(body) > 0 && json.Unmarshal(body, &er) == nil {
		if text := er.Text(); text != "" {
			return text
		}
	}
	return http.StatusText(statusCode)
}

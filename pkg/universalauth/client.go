package universalauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"infisicalauth/pkg/logging"
)

const (
	// LoginPath is the Universal Auth login endpoint, relative to the base URL.
	LoginPath = "/api/v1/auth/universal-auth/login"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a login response is read.
	maxResponseBytes = 1 << 20
)

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	// AccessToken is the new bearer token.
	AccessToken string `json:"accessToken"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int `json:"expiresIn,omitempty"`

	// AccessTokenMaxTTL is the upper bound on renewals, in seconds.
	AccessTokenMaxTTL int `json:"accessTokenMaxTTL,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"tokenType,omitempty"`
}

type loginRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// Client exchanges a client id/secret pair for a bearer token.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Universal Auth client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     logging.Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Login performs the token exchange against baseURL.
// Non-2xx responses are returned as *HTTPError.
func (c *Client) Login(ctx context.Context, baseURL, clientID, clientSecret string) (*LoginResponse, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("client id and client secret are required")
	}

	payload, err := json.Marshal(loginRequest{ClientID: clientID, ClientSecret: clientSecret})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + LoginPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("Login request failed",
			"endpoint", endpoint,
			"status", resp.StatusCode)
		return nil, newHTTPError(resp.StatusCode, body)
	}

	var login LoginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if login.AccessToken == "" {
		return nil, fmt.Errorf("login response did not contain an access token")
	}

	c.logger.Debug("Login succeeded",
		"endpoint", endpoint,
		"expires_in", login.ExpiresIn)

	return &login, nil
}

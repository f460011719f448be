package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"infisicalauth/internal/httpclient"
	"infisicalauth/pkg/logging"
	"infisicalauth/pkg/universalauth"
)

const refreshKey = "refresh"

// Exchanger trades a client id/secret pair for a bearer token.
// *universalauth.Client is the production implementation.
type Exchanger interface {
	Login(ctx context.Context, baseURL, clientID, clientSecret string) (*universalauth.LoginResponse, error)
}

// Credential holds a bearer token, the optional client id/secret pair that
// can mint a new one, and the base URL both belong to.
//
// A Credential is safe for concurrent use. Concurrent callers that find the
// token invalid share a single token exchange.
type Credential struct {
	baseURL      string
	clientID     string
	clientSecret Secret

	mu          sync.RWMutex
	token       string
	refreshedAt time.Time

	exchanger      Exchanger
	refreshTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger

	refreshGroup singleflight.Group
}

// CredentialOption configures a Credential.
type CredentialOption func(*Credential)

// WithExchanger sets the token exchange implementation.
func WithExchanger(e Exchanger) CredentialOption {
	return func(c *Credential) {
		c.exchanger = e
	}
}

// WithHTTPClient makes the default exchanger use httpClient.
func WithHTTPClient(httpClient *http.Client) CredentialOption {
	return func(c *Credential) {
		c.exchanger = universalauth.NewClient(universalauth.WithHTTPClient(httpClient))
	}
}

// WithRefreshTimeout bounds a token exchange. The exchange is shared by every
// caller waiting on it, so no single caller's context can cancel it. Zero
// leaves it bounded only by the HTTP client.
func WithRefreshTimeout(d time.Duration) CredentialOption {
	return func(c *Credential) {
		c.refreshTimeout = d
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) CredentialOption {
	return func(c *Credential) {
		c.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CredentialOption {
	return func(c *Credential) {
		c.logger = logger
	}
}

// NewCredential creates a Credential. token may be empty when the client
// id/secret pair is set; the first call to Token then performs the exchange.
func NewCredential(baseURL, token, clientID, clientSecret string, opts ...CredentialOption) *Credential {
	c := &Credential{
		baseURL:        strings.TrimRight(baseURL, "/"),
		clientID:       clientID,
		clientSecret:   NewSecret(clientSecret),
		token:          token,
		refreshTimeout: universalauth.DefaultHTTPTimeout,
		now:            time.Now,
		logger:         logging.Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.exchanger == nil {
		clientOpts := []universalauth.ClientOption{universalauth.WithLogger(c.logger)}
		httpClient, err := httpclient.New(httpclient.OptionsFromEnvironment(os.LookupEnv))
		if err != nil {
			c.logger.Warn("Ignoring TLS settings from the environment", "error", err)
		} else {
			clientOpts = append(clientOpts, universalauth.WithHTTPClient(httpClient))
		}
		c.exchanger = universalauth.NewClient(clientOpts...)
	}

	return c
}

// URL returns the base URL the credential authenticates against.
func (c *Credential) URL() string {
	return c.baseURL
}

// ClientID returns the client identifier, empty for token-only credentials.
func (c *Credential) ClientID() string {
	return c.clientID
}

// Refreshable reports whether the credential can mint new tokens.
func (c *Credential) Refreshable() bool {
	return c.clientID != "" && !c.clientSecret.IsEmpty()
}

// IsValid reports whether the current token is non-empty and, when it
// carries an expiry claim, not yet expired.
func (c *Credential) IsValid() bool {
	return c.valid(c.current())
}

// ExpiresAt returns the expiry embedded in the current token. ok is false
// when there is no token or the token carries no expiry.
func (c *Credential) ExpiresAt() (exp time.Time, ok bool) {
	token := c.current()
	if token == "" {
		return time.Time{}, false
	}
	return tokenExpiry(token)
}

// RefreshedAt returns the time of the last successful exchange.
func (c *Credential) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// Token returns a valid bearer token, exchanging the client id/secret pair
// first when the current token is missing or expired.
func (c *Credential) Token(ctx context.Context) (string, error) {
	token := c.current()
	if c.valid(token) {
		return token, nil
	}

	if !c.Refreshable() {
		if token == "" {
			return "", NewCredentialsError(msgMissingToken, nil)
		}
		return "", NewCredentialsError(msgExpired, nil)
	}

	token, err := c.refresh(ctx, false)
	if err != nil {
		return "", err
	}
	if !c.valid(token) {
		return "", NewCredentialsError(msgStaleRefresh, nil)
	}
	return token, nil
}

// Refresh exchanges the client id/secret pair for a new token. It is a no-op
// for token-only credentials. On failure the previous token is kept.
func (c *Credential) Refresh(ctx context.Context) error {
	if !c.Refreshable() {
		return nil
	}
	_, err := c.refresh(ctx, true)
	return err
}

func (c *Credential) refresh(ctx context.Context, force bool) (string, error) {
	ch := c.refreshGroup.DoChan(refreshKey, func() (interface{}, error) {
		// Another flight may have completed while this caller was waiting.
		if !force {
			if token := c.current(); c.valid(token) {
				return token, nil
			}
		}
		// The flight outlives the caller that started it; each waiter stops
		// waiting on its own context below.
		flightCtx := context.WithoutCancel(ctx)
		if c.refreshTimeout > 0 {
			var cancel context.CancelFunc
			flightCtx, cancel = context.WithTimeout(flightCtx, c.refreshTimeout)
			defer cancel()
		}
		return c.exchange(flightCtx)
	})

	select {
	case <-ctx.Done():
		return "", NewCredentialsError(msgRefreshCanceled, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Credential) exchange(ctx context.Context) (string, error) {
	resp, err := c.exchanger.Login(ctx, c.baseURL, c.clientID, c.clientSecret.Value())
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "token_refresh",
			Outcome: "failure",
			Source:  c.clientID,
			Target:  c.baseURL,
			Details: err.Error(),
		})
		if ctx.Err() != nil {
			return "", NewCredentialsError(msgRefreshCanceled, err)
		}
		return "", NewCredentialsError(msgRefreshFailed, err)
	}

	c.mu.Lock()
	c.token = resp.AccessToken
	c.refreshedAt = c.now()
	c.mu.Unlock()

	logging.Audit(logging.AuditEvent{
		Action:  "token_refresh",
		Outcome: "success",
		Source:  c.clientID,
		Target:  c.baseURL,
	})
	c.logger.Debug("Access token refreshed",
		"url", c.baseURL,
		"expires_in", resp.ExpiresIn)

	return resp.AccessToken, nil
}

func (c *Credential) current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credential) valid(token string) bool {
	if token == "" {
		return false
	}
	exp, ok := tokenExpiry(token)
	if !ok {
		return true
	}
	return c.now().Before(exp)
}

// String implements fmt.Stringer without exposing the token or secret.
func (c *Credential) String() string {
	kind := "token"
	if c.Refreshable() {
		kind = "client-credentials"
	}
	return fmt.Sprintf("Credential{url=%s kind=%s valid=%t}", c.baseURL, kind, c.IsValid())
}

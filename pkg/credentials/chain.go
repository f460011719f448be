package credentials

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"infisicalauth/internal/httpclient"
	"infisicalauth/pkg/logging"
	"infisicalauth/pkg/session"
)

// Chain tries an ordered list of Providers and resolves the first usable
// one into a Credential.
//
// A Chain is meant to be built and resolved once, before the client that
// owns the resulting Credential goes live. It is not safe for concurrent
// Resolve calls.
type Chain struct {
	providers  []Provider
	url        string
	defaultURL string
	credOpts   []CredentialOption
	httpClient *http.Client
	initErr    error
	explicit   Explicit
	env        Environment
	session    SessionFile
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithURL forces the base URL of the resolved credential, whichever
// provider supplied it.
func WithURL(url string) ChainOption {
	return func(c *Chain) {
		c.url = strings.TrimRight(url, "/")
	}
}

// WithDefaultURL sets the base URL used when no provider names one. It
// defaults to INFISICAL_URL, then DefaultURL, read once at construction.
func WithDefaultURL(url string) ChainOption {
	return func(c *Chain) {
		c.defaultURL = strings.TrimRight(url, "/")
	}
}

// WithToken supplies an explicit bearer token.
func WithToken(token string) ChainOption {
	return func(c *Chain) {
		c.explicit.Token = token
	}
}

// WithClientCredentials supplies an explicit client id/secret pair.
func WithClientCredentials(clientID, clientSecret string) ChainOption {
	return func(c *Chain) {
		c.explicit.ClientID = clientID
		c.explicit.ClientSecret = clientSecret
	}
}

// WithEnvironment configures the built-in Environment provider.
func WithEnvironment(env Environment) ChainOption {
	return func(c *Chain) {
		c.env = env
	}
}

// WithSessionDecoder makes the built-in SessionFile provider use decoder.
func WithSessionDecoder(decoder *session.Decoder) ChainOption {
	return func(c *Chain) {
		c.session.Decoder = decoder
	}
}

// WithCredentialOptions applies opts to every Credential the chain creates.
func WithCredentialOptions(opts ...CredentialOption) ChainOption {
	return func(c *Chain) {
		c.credOpts = append(c.credOpts, opts...)
	}
}

// WithChainHTTPClient makes resolved credentials exchange tokens through
// httpClient. Without it the chain builds a client from INFISICAL_VERIFY_SSL,
// SSL_CERT_FILE and SSL_CERT_DIR.
func WithChainHTTPClient(httpClient *http.Client) ChainOption {
	return func(c *Chain) {
		c.httpClient = httpClient
	}
}

// NewChain creates a Chain with the default providers: explicit values
// (only when some were given), then the environment, then the local session.
func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{}
	for _, opt := range opts {
		opt(c)
	}

	if c.defaultURL == "" {
		c.defaultURL = strings.TrimRight(os.Getenv(EnvURL), "/")
	}
	if c.defaultURL == "" {
		c.defaultURL = DefaultURL
	}

	if c.httpClient == nil {
		c.httpClient, c.initErr = httpclient.New(httpclient.OptionsFromEnvironment(os.LookupEnv))
	}
	if c.httpClient != nil {
		// Prepended so WithCredentialOptions can still replace the exchanger.
		c.credOpts = append([]CredentialOption{WithHTTPClient(c.httpClient)}, c.credOpts...)
	}

	if c.explicit.configured() {
		c.providers = append(c.providers, &c.explicit)
	}
	c.providers = append(c.providers, &c.env, &c.session)
	return c
}

// AddProvider inserts p at index. Index 0 is tried first. Out-of-range
// indices clamp to the ends of the list; negative indices count from the end.
func (c *Chain) AddProvider(p Provider, index int) {
	n := len(c.providers)
	if index < 0 {
		index += n
		if index < 0 {
			index = 0
		}
	}
	if index > n {
		index = n
	}
	c.providers = append(c.providers, nil)
	copy(c.providers[index+1:], c.providers[index:])
	c.providers[index] = p
}

// Providers returns the providers in resolution order.
func (c *Chain) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// DefaultURL returns the fallback base URL resolved at construction.
func (c *Chain) DefaultURL() string {
	return c.defaultURL
}

// Resolve walks the providers in order and returns the Credential of the
// first one with usable values. A provider error stops the walk.
func (c *Chain) Resolve(ctx context.Context) (*Credential, error) {
	if c.initErr != nil {
		return nil, NewCredentialsError(msgTransport, c.initErr)
	}
	for _, p := range c.providers {
		cred, ok, err := ResolveProvider(ctx, p, c.url, c.defaultURL, c.credOpts...)
		if err != nil {
			if !IsCredentialsError(err) {
				err = NewCredentialsError(fmt.Sprintf("provider %s failed", p.Name()), err)
			}
			logging.Audit(logging.AuditEvent{
				Action:  "credential_resolve",
				Outcome: "failure",
				Source:  p.Name(),
				Details: err.Error(),
			})
			return nil, err
		}
		if !ok {
			logging.Debug("Credentials", "provider %s has no credentials", p.Name())
			continue
		}

		logging.Audit(logging.AuditEvent{
			Action:  "credential_resolve",
			Outcome: "success",
			Source:  p.Name(),
			Target:  cred.URL(),
		})
		return cred, nil
	}

	logging.Audit(logging.AuditEvent{
		Action:  "credential_resolve",
		Outcome: "failure",
		Details: msgNoCredentials,
	})
	return nil, NewCredentialsError(msgNoCredentials, nil)
}

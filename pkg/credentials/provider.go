package credentials

import (
	"context"
	"strings"
)

// DefaultURL is the base URL used when neither the caller, the provider nor
// INFISICAL_URL names one.
const DefaultURL = "https://us.infisical.com"

// Values are the raw credential fields a Provider found.
type Values struct {
	URL          string
	Token        string
	ClientID     string
	ClientSecret string
}

// Usable reports whether v carries a token or a complete client id/secret pair.
func (v Values) Usable() bool {
	return v.Token != "" || v.Refreshable()
}

// Refreshable reports whether v carries a complete client id/secret pair.
func (v Values) Refreshable() bool {
	return v.ClientID != "" && v.ClientSecret != ""
}

// Provider is one source of credentials in a Chain.
//
// Load returns zero Values and a nil error when the source has nothing to
// offer. A non-nil error means the source is present but misconfigured and
// stops resolution.
type Provider interface {
	Name() string
	Load(ctx context.Context) (Values, error)
}

// ProviderFunc adapts an ordinary function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Values, error)

// Name implements Provider.
func (f ProviderFunc) Name() string {
	return "custom"
}

// Load implements Provider.
func (f ProviderFunc) Load(ctx context.Context) (Values, error) {
	return f(ctx)
}

// ResolveProvider loads p and builds a Credential from the result. The base
// URL is urlOverride when set, else the provider's URL, else defaultURL.
// ok is false when the provider had nothing usable.
func ResolveProvider(ctx context.Context, p Provider, urlOverride, defaultURL string, opts ...CredentialOption) (cred *Credential, ok bool, err error) {
	v, err := p.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	if !v.Usable() {
		return nil, false, nil
	}

	baseURL := strings.TrimRight(urlOverride, "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(v.URL, "/")
	}
	if baseURL == "" {
		baseURL = strings.TrimRight(defaultURL, "/")
	}

	return NewCredential(baseURL, v.Token, v.ClientID, v.ClientSecret, opts...), true, nil
}

package credentials

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type credentialTokenSource struct {
	ctx  context.Context
	cred *Credential
}

func (s *credentialTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.cred.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	t := &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}
	if exp, ok := tokenExpiry(token); ok {
		t.Expiry = exp
	}
	return t, nil
}

// TokenSource returns an oauth2.TokenSource backed by the credential. Every
// call goes through Token, so expiry and refresh stay with the Credential.
// ctx bounds any refresh the source performs.
func (c *Credential) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &credentialTokenSource{ctx: ctx, cred: c}
}

// NewHTTPClient returns a client that sends the credential's bearer token
// on every request. base supplies the underlying transport and timeout; nil
// means http.DefaultClient.
func (c *Credential) NewHTTPClient(ctx context.Context, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: c.TokenSource(ctx),
			Base:   base.Transport,
		},
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}

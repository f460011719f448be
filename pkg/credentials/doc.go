// Package credentials resolves an Infisical credential from an ordered chain
// of sources and keeps its bearer token valid for the lifetime of a client.
//
// # Resolution
//
// NewChain builds the default chain:
//
//  1. Explicit values given to the chain (only when any were given)
//  2. Environment: INFISICAL_TOKEN, or INFISICAL_CLIENT_ID with INFISICAL_CLIENT_SECRET
//  3. SessionFile: the token the Infisical CLI stored after "infisical login"
//
// Resolve returns the Credential of the first provider with usable values.
// Custom providers are inserted with AddProvider; index 0 is tried first.
// A source with nothing to offer returns zero Values, not an error.
//
// # Base URL
//
// The credential's base URL is, in order: the chain's WithURL value, the
// URL the provider reported, INFISICAL_URL read when the chain was built,
// and finally https://us.infisical.com.
//
// # Token lifecycle
//
// Credential.Token returns the current token while it is valid. A token is
// valid when it is non-empty and, if it is a signed token with an exp claim,
// that expiry is in the future. When the token is invalid and the credential
// holds a client id/secret pair, Token exchanges the pair for a new token
// through Universal Auth. Concurrent callers share one exchange. Token-only
// credentials that expire return a CredentialsError without any network call.
//
// TokenSource and NewHTTPClient plug a Credential into golang.org/x/oauth2
// transports.
package credentials

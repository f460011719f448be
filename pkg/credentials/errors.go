package credentials

import "errors"

// Messages used by the errors this package returns.
const (
	msgNoCredentials   = "no credentials found in any configured source"
	msgExpired         = "the credentials have expired and cannot be refreshed"
	msgMissingToken    = "the credentials carry no token and cannot be refreshed"
	msgRefreshFailed   = "failed to refresh access token"
	msgRefreshCanceled = "token refresh was cancelled"
	msgStaleRefresh    = "the refreshed token is already expired"
	msgTokenOrPair     = "you may specify either a token or a client id and secret, not both"
	msgIncompletePair  = "both client id and client secret must be provided"
	msgTransport       = "invalid TLS settings for token exchange"
)

// CredentialsError is returned when no usable credential can be produced:
// the chain is exhausted, a token-only credential has expired, a refresh
// failed, or a session record could not be decrypted in strict mode.
type CredentialsError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CredentialsError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *CredentialsError) Unwrap() error {
	return e.Cause
}

// NewCredentialsError creates a CredentialsError.
func NewCredentialsError(message string, cause error) *CredentialsError {
	return &CredentialsError{Message: message, Cause: cause}
}

// IsCredentialsError checks if an error is (or wraps) a CredentialsError.
func IsCredentialsError(err error) bool {
	var credErr *CredentialsError
	return errors.As(err, &credErr)
}

package universalauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	pkgstrings "infisicalauth/pkg/strings"
)

// HTTPError is returned for non-2xx login responses.
type HTTPError struct {
	StatusCode int
	Message    string
	Details    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %d: %s", errorKind(e.StatusCode), e.StatusCode, e.Message)
	if e.Details != "" {
		msg += " - " + e.Details
	}
	return msg
}

func errorKind(status int) string {
	if status >= 400 && status <= 499 {
		return "Client Error"
	}
	return "Server Error"
}

// newHTTPError parses an API error body. Bodies that are not the expected
// JSON shape fall back to the HTTP status text.
func newHTTPError(status int, body []byte) *HTTPError {
	var apiErr struct {
		Message    string          `json:"message"`
		StatusCode int             `json:"statusCode"`
		Details    json.RawMessage `json:"details"`
	}
	e := &HTTPError{StatusCode: status}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		e.Message = apiErr.Message
		if len(apiErr.Details) > 0 && string(apiErr.Details) != "null" {
			var s string
			if json.Unmarshal(apiErr.Details, &s) == nil {
				e.Details = pkgstrings.Truncate(s, pkgstrings.DefaultDetailMaxLen)
			} else {
				e.Details = pkgstrings.Truncate(string(apiErr.Details), pkgstrings.DefaultDetailMaxLen)
			}
		}
		return e
	}
	e.Message = http.StatusText(status)
	if e.Message == "" {
		e.Message = "unexpected response"
	}
	return e
}

// IsUnauthorized reports whether err is a 401 or 403 login failure,
// i.e. the client id/secret pair itself was rejected.
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
}

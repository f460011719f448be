package session

import (
	"errors"
	"fmt"
)

// Errors that mean "no session available". Callers walking a provider chain
// treat all of them as absence.
var (
	ErrConfigNotFound     = errors.New("session config file not found")
	ErrMalformedConfig    = errors.New("session config file is malformed")
	ErrUnsupportedBackend = errors.New("unsupported vault backend")
	ErrIncompleteConfig   = errors.New("session config is missing required fields")
	ErrRecordNotFound     = errors.New("no keyring record for logged-in user")
)

// RecordFormatError reports a keyring record that is present but not a
// well-formed compact JWE, or whose decrypted payload has no token.
type RecordFormatError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *RecordFormatError) Error() string {
	msg := fmt.Sprintf("malformed keyring record %s: %s", e.Path, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RecordFormatError) Unwrap() error {
	return e.Cause
}

// DecryptError reports that a well-formed record failed to decrypt, either
// because the passphrase is wrong or the record was tampered with.
type DecryptError struct {
	Path  string
	Cause error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("failed to decrypt keyring record %s: %v", e.Path, e.Cause)
}

func (e *DecryptError) Unwrap() error {
	return e.Cause
}

// IsAbsent reports whether err only means that no session is configured.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrMalformedConfig) ||
		errors.Is(err, ErrUnsupportedBackend) ||
		errors.Is(err, ErrIncompleteConfig) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsCorrupt reports whether err came from a present record that could not be
// parsed or decrypted.
func IsCorrupt(err error) bool {
	var formatErr *RecordFormatError
	var decryptErr *DecryptError
	return errors.As(err, &formatErr) || errors.As(err, &decryptErr)
}

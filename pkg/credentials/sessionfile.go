package credentials

import (
	"context"

	"infisicalauth/pkg/logging"
	"infisicalauth/pkg/session"
)

// SessionFile provides the token of the local CLI login session. Session
// credentials are never refreshable; running the CLI login again replaces
// the stored token.
type SessionFile struct {
	// Decoder reads the session. Nil means a decoder with default paths.
	Decoder *session.Decoder

	// Strict reports a present but unreadable keyring record as a
	// CredentialsError instead of treating it as absence.
	Strict bool
}

// Name implements Provider.
func (s *SessionFile) Name() string {
	return "session-file"
}

// Load implements Provider.
func (s *SessionFile) Load(_ context.Context) (Values, error) {
	decoder := s.Decoder
	if decoder == nil {
		d, err := session.NewDecoder()
		if err != nil {
			logging.Debug("Credentials", "session file source unavailable: %v", err)
			return Values{}, nil
		}
		decoder = d
	}

	sess, err := decoder.Load()
	if err != nil {
		if s.Strict && session.IsCorrupt(err) {
			return Values{}, NewCredentialsError("failed to read local session", err)
		}
		if session.IsCorrupt(err) {
			logging.Warn("Credentials", "ignoring unreadable local session: %v", err)
		} else {
			logging.Debug("Credentials", "no local session: %v", err)
		}
		return Values{}, nil
	}

	return Values{URL: sess.URL, Token: sess.Token}, nil
}

package credentials

import "context"

// Explicit provides values passed in by the caller.
type Explicit struct {
	URL          string
	Token        string
	ClientID     string
	ClientSecret string
}

// Name implements Provider.
func (e *Explicit) Name() string {
	return "explicit"
}

// Load implements Provider. Empty fields mean the caller supplied nothing.
// A token together with client credentials, or half a client pair, is a
// configuration error.
func (e *Explicit) Load(_ context.Context) (Values, error) {
	if e.Token == "" && e.ClientID == "" && e.ClientSecret == "" {
		return Values{}, nil
	}
	if e.Token != "" && (e.ClientID != "" || e.ClientSecret != "") {
		return Values{}, NewCredentialsError(msgTokenOrPair, nil)
	}
	if e.Token == "" && (e.ClientID == "" || e.ClientSecret == "") {
		return Values{}, NewCredentialsError(msgIncompletePair, nil)
	}
	return Values{
		URL:          e.URL,
		Token:        e.Token,
		ClientID:     e.ClientID,
		ClientSecret: e.ClientSecret,
	}, nil
}

// configured reports whether any explicit value was supplied.
func (e *Explicit) configured() bool {
	return e.Token != "" || e.ClientID != "" || e.ClientSecret != ""
}

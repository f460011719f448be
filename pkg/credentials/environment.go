package credentials

import (
	"context"
	"os"
)

// Environment variable names read by the Environment provider.
const (
	EnvToken        = "INFISICAL_TOKEN"
	EnvClientID     = "INFISICAL_CLIENT_ID"
	EnvClientSecret = "INFISICAL_CLIENT_SECRET"
	EnvURL          = "INFISICAL_URL"
)

// Environment provides credentials from process environment variables.
//
// When both INFISICAL_TOKEN and the client id/secret pair are set, the
// refreshable pair wins unless PreferToken is set.
type Environment struct {
	// PreferToken selects INFISICAL_TOKEN over the client pair when both are set.
	PreferToken bool

	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Name implements Provider.
func (e *Environment) Name() string {
	return "environment"
}

// Load implements Provider.
func (e *Environment) Load(_ context.Context) (Values, error) {
	lookup := e.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	token := get(EnvToken)
	pair := Values{ClientID: get(EnvClientID), ClientSecret: get(EnvClientSecret)}

	var v Values
	switch {
	case e.PreferToken && token != "":
		v.Token = token
	case pair.Refreshable():
		v = pair
	case token != "":
		v.Token = token
	default:
		return Values{}, nil
	}
	v.URL = get(EnvURL)
	return v, nil
}

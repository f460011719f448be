package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileBackend is the only vault backend type this package can read.
const FileBackend = "file"

// LoggedInUser is one entry of the CLI's known-accounts list.
type LoggedInUser struct {
	Email  string `json:"email"`
	Domain string `json:"domain"`
}

// Config is the subset of the CLI session config this package reads.
type Config struct {
	LoggedInUserEmail      string         `json:"loggedInUserEmail"`
	LoggedInUserDomain     string         `json:"LoggedInUserDomain"`
	Domain                 string         `json:"domain"`
	VaultBackendType       string         `json:"vaultBackendType"`
	VaultBackendPassphrase string         `json:"vaultBackendPassphrase"`
	LoggedInUsers          []LoggedInUser `json:"loggedInUsers"`
}

// readConfig loads and validates the config file at path.
func readConfig(path string) (*Config, error) {
	// #nosec G304 -- path is the well-known CLI config location or caller supplied
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	if err := validateConfig(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	return &cfg, nil
}

// URL returns the workspace base URL the session was issued by, with any
// trailing "/api" removed. Empty when the config records no domain.
func (c *Config) URL() string {
	domain := c.LoggedInUserDomain
	if domain == "" {
		domain = c.Domain
	}
	if domain == "" {
		for _, u := range c.LoggedInUsers {
			if u.Email == c.LoggedInUserEmail && u.Domain != "" {
				domain = u.Domain
				break
			}
		}
	}
	domain = strings.TrimSuffix(domain, "/")
	domain = strings.TrimSuffix(domain, "/api")
	return domain
}

// passphrase decodes the stored vault passphrase. ok is false when the
// config does not carry one.
func (c *Config) passphrase() (key []byte, ok bool, err error) {
	if c.VaultBackendPassphrase == "" {
		return nil, false, nil
	}
	key, err = base64.StdEncoding.DecodeString(c.VaultBackendPassphrase)
	if err != nil {
		return nil, false, fmt.Errorf("%w: vaultBackendPassphrase is not valid base64", ErrMalformedConfig)
	}
	return key, true, nil
}

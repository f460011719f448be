package config

import "time"

// Settings are the process-wide options resolved once at startup and passed
// explicitly to the credential chain and the HTTP transport.
type Settings struct {
	// URL forces the base URL of the resolved credential. Empty lets each
	// provider report its own.
	URL string `yaml:"url,omitempty"`

	// DefaultURL is used when no provider names a base URL.
	DefaultURL string `yaml:"default-url,omitempty"`

	Token        string `yaml:"token,omitempty"`
	ClientID     string `yaml:"client-id,omitempty"`
	ClientSecret string `yaml:"client-secret,omitempty"`

	// PreferToken makes INFISICAL_TOKEN win over a client id/secret pair set
	// in the same environment.
	PreferToken bool `yaml:"prefer-token,omitempty"`

	VerifySSL  bool          `yaml:"verify-ssl"`
	CACertFile string        `yaml:"ca-cert-file,omitempty"`
	CACertDir  string        `yaml:"ca-cert-dir,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`

	SessionConfigPath string `yaml:"session-config,omitempty"`
	KeyringDir        string `yaml:"keyring-dir,omitempty"`

	LogLevel  string `yaml:"log-level,omitempty"`
	LogFormat string `yaml:"log-format,omitempty"`

	// ConfigFile is the settings file that was read, empty when none was found.
	ConfigFile string `yaml:"-"`
}

// Redacted returns a copy safe to print: secret values are masked.
func (s Settings) Redacted() Settings {
	if s.Token != "" {
		s.Token = redacted
	}
	if s.ClientSecret != "" {
		s.ClientSecret = redacted
	}
	return s
}

const redacted = "[REDACTED]"

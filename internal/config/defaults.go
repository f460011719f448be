package config

import "time"

const (
	userConfigDir  = ".config/infisicalauth"
	configFileName = "config"

	// EnvPrefix namespaces the environment variables read into Settings.
	EnvPrefix = "INFISICAL"

	// DefaultURL is the hosted Infisical instance.
	DefaultURL = "https://us.infisical.com"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second
)

// Keys of the settings, shared by flags, the settings file and the environment.
const (
	KeyURL               = "url"
	KeyDefaultURL        = "default-url"
	KeyToken             = "token"
	KeyClientID          = "client-id"
	KeyClientSecret      = "client-secret"
	KeyPreferToken       = "prefer-token"
	KeyVerifySSL         = "verify-ssl"
	KeyCACertFile        = "ca-cert-file"
	KeyCACertDir         = "ca-cert-dir"
	KeyTimeout           = "timeout"
	KeySessionConfigPath = "session-config"
	KeyKeyringDir        = "keyring-dir"
	KeyLogLevel          = "log-level"
	KeyLogFormat         = "log-format"
)

// GetDefaultSettings returns the settings used when nothing is configured.
func GetDefaultSettings() Settings {
	return Settings{
		DefaultURL: DefaultURL,
		VerifySSL:  true,
		Timeout:    DefaultTimeout,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Package config resolves the process-wide settings of infisicalauth.
//
// Settings are read once at startup with viper and then passed explicitly
// to the credential chain and HTTP transport; nothing re-reads the
// environment mid-request.
//
// # Sources
//
// In increasing precedence:
//   - built-in defaults (GetDefaultSettings)
//   - the settings file, ~/.config/infisicalauth/config.yaml unless --config names another
//   - environment variables (INFISICAL_URL, INFISICAL_VERIFY_SSL, SSL_CERT_FILE, ...)
//   - command-line flags that were explicitly set
//
// Settings file keys match the flag names:
//
//	url: https://secrets.internal.example.com
//	verify-ssl: false
//	timeout: 10s
//	session-config: /etc/infisical/infisical-config.json
//
// INFISICAL_URL sets the default base URL, used only when no credential
// source names its own; the url key forces the base URL for every source.
// Credential values (token, client id, client secret) are read from flags
// and the settings file only: the credential chain reads the INFISICAL_TOKEN,
// INFISICAL_CLIENT_ID and INFISICAL_CLIENT_SECRET environment variables itself.
package config

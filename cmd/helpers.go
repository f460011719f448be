package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"infisicalauth/internal/config"
	"infisicalauth/internal/httpclient"
	"infisicalauth/pkg/credentials"
	"infisicalauth/pkg/session"
)

// currentSettings returns the settings loaded by the root command, or the
// defaults when a command runs without it (tests).
func currentSettings() *config.Settings {
	if settings != nil {
		return settings
	}
	s := config.GetDefaultSettings()
	return &s
}

// newHTTPClient builds the transport shared by the token exchange.
func newHTTPClient(s *config.Settings) (*http.Client, error) {
	return httpclient.New(httpclient.Options{
		VerifySSL:  s.VerifySSL,
		CACertFile: s.CACertFile,
		CACertDir:  s.CACertDir,
		UserAgent:  httpclient.UserAgent(GetVersion()),
		Timeout:    s.Timeout,
	})
}

// newSessionDecoder builds the local session decoder from the settings.
func newSessionDecoder(s *config.Settings) (*session.Decoder, error) {
	var opts []session.Option
	if s.SessionConfigPath != "" {
		opts = append(opts, session.WithConfigPath(s.SessionConfigPath))
	}
	if s.KeyringDir != "" {
		opts = append(opts, session.WithKeyringDir(s.KeyringDir))
	}
	return session.NewDecoder(opts...)
}

// newChain builds the credential chain described by the settings.
func newChain(s *config.Settings) (*credentials.Chain, error) {
	httpClient, err := newHTTPClient(s)
	if err != nil {
		return nil, err
	}
	decoder, err := newSessionDecoder(s)
	if err != nil {
		return nil, err
	}

	opts := []credentials.ChainOption{
		credentials.WithDefaultURL(s.DefaultURL),
		credentials.WithEnvironment(credentials.Environment{PreferToken: s.PreferToken}),
		credentials.WithSessionDecoder(decoder),
		credentials.WithChainHTTPClient(httpClient),
	}
	if s.URL != "" {
		opts = append(opts, credentials.WithURL(s.URL))
	}
	if s.Token != "" {
		opts = append(opts, credentials.WithToken(s.Token))
	}
	if s.ClientID != "" || s.ClientSecret != "" {
		opts = append(opts, credentials.WithClientCredentials(s.ClientID, s.ClientSecret))
	}
	return credentials.NewChain(opts...), nil
}

// commandContext returns the command context, falling back to Background
// when the command is run directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// startSpinner shows progress on the command's error stream unless quiet.
// The returned stop function is safe to call more than once.
func startSpinner(cmd *cobra.Command, quiet bool, suffix string) func() {
	if quiet {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}

// formatCredentialExpiry describes when the credential's token expires.
func formatCredentialExpiry(cred *credentials.Credential) string {
	exp, ok := cred.ExpiresAt()
	if !ok {
		return text.FgHiBlack.Sprint("no expiry")
	}
	return formatExpiryWithDirection(exp)
}

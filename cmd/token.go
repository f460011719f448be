package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	tokenOutput string
	tokenQuiet  bool
)

// tokenInfo is the structured output of the token command.
type tokenInfo struct {
	AccessToken string     `json:"accessToken" yaml:"accessToken"`
	TokenType   string     `json:"tokenType" yaml:"tokenType"`
	URL         string     `json:"url" yaml:"url"`
	Refreshable bool       `json:"refreshable" yaml:"refreshable"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a valid bearer token",
	Long: `Resolve a credential and print a bearer token that is valid right now.

A client id/secret pair is exchanged for a new token through Universal Auth
when needed; a token-only credential that has expired is an error.

Examples:
  infisicalauth token                          # print the raw token
  infisicalauth token -o json                  # token with URL and expiry
  curl -H "Authorization: Bearer $(infisicalauth token -q)" ...`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenOutput, "output", "o", "raw", "output format: raw, json or yaml")
	tokenCmd.Flags().BoolVarP(&tokenQuiet, "quiet", "q", false, "suppress progress output")
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := validateOutput(tokenOutput); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	chain, err := newChain(currentSettings())
	if err != nil {
		return err
	}

	cred, err := chain.Resolve(ctx)
	if err != nil {
		return err
	}

	stop := startSpinner(cmd, tokenQuiet || cred.IsValid(), "Obtaining access token...")
	token, err := cred.Token(ctx)
	stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	info := tokenInfo{
		AccessToken: token,
		TokenType:   "Bearer",
		URL:         cred.URL(),
		Refreshable: cred.Refreshable(),
	}
	if exp, ok := cred.ExpiresAt(); ok {
		info.ExpiresAt = &exp
	}

	switch tokenOutput {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(info)
	default:
		_, err := fmt.Fprintln(out, token)
		return err
	}
}

func validateOutput(format string) error {
	switch format {
	case "raw", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported output format %q: use raw, json or yaml", format)
}

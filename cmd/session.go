package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"infisicalauth/pkg/credentials"
	"infisicalauth/pkg/session"
)

var sessionShowToken bool

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the local Infisical CLI session",
	Long: `Decode the session "infisical login" stored on this machine.

Only the "file" vault backend can be read. The passphrase comes from the
session config or INFISICAL_VAULT_FILE_PASSPHRASE.

Examples:
  infisicalauth session                            # show the logged-in user and expiry
  infisicalauth session --show-token               # also print the token
  infisicalauth session store user@example.com < token.txt`,
	Args: cobra.NoArgs,
	RunE: runSessionShow,
}

var sessionStoreCmd = &cobra.Command{
	Use:   "store <user>",
	Short: "Seal a token from stdin into the file vault",
	Long: `Read a bearer token from standard input and write it to the file vault
as the record for <user>, encrypted with the session passphrase.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionStore,
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionShowToken, "show-token", false, "print the decrypted token")
	sessionCmd.AddCommand(sessionStoreCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	decoder, err := newSessionDecoder(currentSettings())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Config:    %s\n", decoder.ConfigPath())
	fmt.Fprintf(out, "  Keyring:   %s\n", decoder.KeyringDir())

	sess, err := decoder.Load()
	if err != nil {
		if session.IsAbsent(err) {
			fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("No session"))
			fmt.Fprintf(out, "             %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "  Status:    %s\n", text.FgRed.Sprint("Unreadable"))
		return err
	}

	// Validity uses the same rules as an API client.
	cred := credentials.NewCredential(sess.URL, sess.Token, "", "")

	fmt.Fprintf(out, "  User:      %s\n", sess.User)
	fmt.Fprintf(out, "  URL:       %s\n", sess.URL)
	if cred.IsValid() {
		fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Valid"))
	} else {
		fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("Expired (run infisical login)"))
	}
	fmt.Fprintf(out, "  Expires:   %s\n", formatCredentialExpiry(cred))
	if sessionShowToken {
		fmt.Fprintf(out, "  Token:     %s\n", sess.Token)
	}
	return nil
}

func runSessionStore(cmd *cobra.Command, args []string) error {
	decoder, err := newSessionDecoder(currentSettings())
	if err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read token from stdin: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("no token on stdin")
	}

	passphrase, err := decoder.Passphrase()
	if err != nil {
		return err
	}

	if err := decoder.Store(args[0], token, passphrase); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored session record for %s in %s\n", args[0], decoder.KeyringDir())
	return nil
}

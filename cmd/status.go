package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"infisicalauth/pkg/credentials"
	pkgstrings "infisicalauth/pkg/strings"
)

// Status-specific flags
var (
	statusCheck bool
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credential source would be used",
	Long: `Show every credential source in resolution order, what each one offers,
and which one a client would use.

Nothing is exchanged with the server unless --check is given, in which case
the resolved credential is asked for a token the way a client would.

Examples:
  infisicalauth status           # list sources
  infisicalauth status --check   # also obtain a token`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "obtain a token from the resolved credential")
}

// sourceStatus is what one provider offered.
type sourceStatus struct {
	Name   string
	Kind   string
	URL    string
	Err    error
	Usable bool
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	chain, err := newChain(currentSettings())
	if err != nil {
		return err
	}

	var statuses []sourceStatus
	for _, p := range chain.Providers() {
		v, err := p.Load(ctx)
		statuses = append(statuses, sourceStatus{
			Name:   p.Name(),
			Kind:   valuesKind(v),
			URL:    v.URL,
			Err:    err,
			Usable: err == nil && v.Usable(),
		})
	}

	out := cmd.OutOrStdout()
	printSourceTable(out, statuses)

	cred, err := chain.Resolve(ctx)
	if err != nil {
		fmt.Fprintf(out, "\n  Status:    %s\n", text.FgRed.Sprint("No usable credential"))
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  URL:       %s\n", cred.URL())
	if cred.Refreshable() {
		fmt.Fprintf(out, "  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		fmt.Fprintf(out, "  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-login required on expiry)"))
	}

	if !statusCheck {
		if cred.IsValid() {
			fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Token loaded"))
			fmt.Fprintf(out, "  Expires:   %s\n", formatCredentialExpiry(cred))
		} else {
			fmt.Fprintf(out, "  Status:    %s\n", text.FgHiBlack.Sprint("Token not loaded (run with --check)"))
		}
		return nil
	}

	stop := startSpinner(cmd, false, "Checking credential...")
	_, err = cred.Token(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(out, "  Status:    %s\n", text.FgRed.Sprint("Token unavailable"))
		return err
	}
	fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	fmt.Fprintf(out, "  Expires:   %s\n", formatCredentialExpiry(cred))
	return nil
}

func printSourceTable(out io.Writer, statuses []sourceStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Source", "Offers", "URL", "State"})

	picked := false
	for i, st := range statuses {
		t.AppendRow(table.Row{i + 1, st.Name, st.Kind, st.URL, formatSourceState(st, &picked)})
	}
	t.Render()
}

// formatSourceState labels a source; the first usable one is marked as selected.
func formatSourceState(st sourceStatus, picked *bool) string {
	switch {
	case st.Err != nil && !*picked:
		*picked = true
		return text.FgRed.Sprint("error: " + pkgstrings.Truncate(st.Err.Error(), pkgstrings.DefaultCellMaxLen))
	case st.Err != nil:
		return text.FgHiBlack.Sprint("not reached")
	case st.Usable && !*picked:
		*picked = true
		return text.FgGreen.Sprint("selected")
	case st.Usable:
		return text.FgHiBlack.Sprint("shadowed")
	default:
		return text.FgHiBlack.Sprint("absent")
	}
}

func valuesKind(v credentials.Values) string {
	switch {
	case v.Refreshable() && v.Token != "":
		return "token + client credentials"
	case v.Refreshable():
		return "client credentials"
	case v.Token != "":
		return "token"
	default:
		return "-"
	}
}

package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"infisicalauth/internal/config"
	"infisicalauth/pkg/credentials"
	"infisicalauth/pkg/logging"
	"infisicalauth/pkg/session"
	"infisicalauth/pkg/universalauth"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable credential was found or it expired.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the server rejected the credential or the
	// local session could not be decrypted.
	ExitCodeAuthFailed = 3
)

var (
	cfgFile  string
	settings *config.Settings
)

// rootCmd represents the base command for the infisicalauth application.
var rootCmd = &cobra.Command{
	Use:   "infisicalauth",
	Short: "Resolve and refresh Infisical credentials",
	Long: `infisicalauth resolves an Infisical credential the same way an API client
does: explicit flags, then INFISICAL_TOKEN or INFISICAL_CLIENT_ID and
INFISICAL_CLIENT_SECRET, then the session left by "infisical login".

It prints bearer tokens for scripts, shows which source would be used,
and inspects or seeds the local encrypted session.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "infisicalauth version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var httpErr *universalauth.HTTPError
	if errors.As(err, &httpErr) {
		return ExitCodeAuthFailed
	}

	if session.IsCorrupt(err) {
		return ExitCodeAuthFailed
	}

	if credentials.IsCredentialsError(err) {
		return ExitCodeAuthRequired
	}

	return ExitCodeError
}

// loadSettings resolves the process-wide settings once, before any command runs.
func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	format := logging.FormatText
	if s.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.Init(logging.ParseLevel(s.LogLevel), format, cmd.ErrOrStderr())

	settings = s
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "settings file (default is $HOME/.config/infisicalauth/config.yaml)")
	flags.String(config.KeyURL, "", "force the base URL for every credential source")
	flags.String(config.KeyDefaultURL, config.DefaultURL, "base URL used when no source names one (env INFISICAL_URL)")
	flags.String(config.KeyToken, "", "explicit bearer token")
	flags.String(config.KeyClientID, "", "explicit Universal Auth client id")
	flags.String(config.KeyClientSecret, "", "explicit Universal Auth client secret")
	flags.Bool(config.KeyPreferToken, false, "prefer INFISICAL_TOKEN over a client id/secret pair in the environment")
	flags.String(config.KeyVerifySSL, "true", "verify TLS certificates (env INFISICAL_VERIFY_SSL)")
	flags.String(config.KeyCACertFile, "", "PEM bundle of extra trusted CAs (env SSL_CERT_FILE)")
	flags.String(config.KeyCACertDir, "", "directory of PEM files with extra trusted CAs (env SSL_CERT_DIR)")
	flags.Duration(config.KeyTimeout, config.DefaultTimeout, "timeout for each HTTP request")
	flags.String(config.KeySessionConfigPath, "", "CLI session config (default is $HOME/"+session.DefaultConfigFile+")")
	flags.String(config.KeyKeyringDir, "", "file vault directory (default is $HOME/"+session.DefaultKeyringDir+")")
	flags.String(config.KeyLogLevel, "info", "log level: debug, info, warn or error")
	flags.String(config.KeyLogFormat, "text", "log format: text or json")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionCmd)
}

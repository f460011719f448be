package session

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"infisicalauth/pkg/logging"
)

const (
	// DefaultConfigFile is the CLI session config, relative to the home directory.
	DefaultConfigFile = ".infisical/infisical-config.json"

	// DefaultKeyringDir is the file vault directory, relative to the home directory.
	DefaultKeyringDir = "infisical-keyring"

	// PassphraseEnvVar supplies the vault passphrase when the config has none.
	// Its value is the passphrase itself, unlike vaultBackendPassphrase in the
	// config file, which holds the passphrase base64-encoded.
	PassphraseEnvVar = "INFISICAL_VAULT_FILE_PASSPHRASE"
)

// Session is a decoded local login session.
type Session struct {
	// User is the logged-in user identifier.
	User string

	// URL is the workspace base URL the token was issued by. May be empty.
	URL string

	// Token is the plaintext bearer token.
	Token string
}

// Decoder reads the local CLI session: the JSON config file and the
// per-user encrypted record in the file vault.
type Decoder struct {
	configPath string
	keyringDir string
	passphrase []byte
	getenv     func(string) string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithConfigPath overrides the session config location.
func WithConfigPath(path string) Option {
	return func(d *Decoder) {
		d.configPath = path
	}
}

// WithKeyringDir overrides the file vault directory.
func WithKeyringDir(dir string) Option {
	return func(d *Decoder) {
		d.keyringDir = dir
	}
}

// WithPassphrase sets the vault passphrase, taking precedence over the
// config file and the environment.
func WithPassphrase(passphrase []byte) Option {
	return func(d *Decoder) {
		d.passphrase = passphrase
	}
}

// WithGetenv replaces os.Getenv for passphrase lookup.
func WithGetenv(getenv func(string) string) Option {
	return func(d *Decoder) {
		d.getenv = getenv
	}
}

// NewDecoder creates a Decoder. Paths that are not overridden default to
// locations under the user's home directory.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := &Decoder{getenv: os.Getenv}
	for _, opt := range opts {
		opt(d)
	}

	if d.configPath == "" || d.keyringDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		if d.configPath == "" {
			d.configPath = filepath.Join(homeDir, DefaultConfigFile)
		}
		if d.keyringDir == "" {
			d.keyringDir = filepath.Join(homeDir, DefaultKeyringDir)
		}
	}
	return d, nil
}

// ConfigPath returns the config file location in use.
func (d *Decoder) ConfigPath() string {
	return d.configPath
}

// KeyringDir returns the file vault directory in use.
func (d *Decoder) KeyringDir() string {
	return d.keyringDir
}

// Config reads and validates the session config file.
func (d *Decoder) Config() (*Config, error) {
	return readConfig(d.configPath)
}

// URL returns the workspace URL recorded in the session config.
func (d *Decoder) URL() (string, error) {
	cfg, err := d.Config()
	if err != nil {
		return "", err
	}
	return cfg.URL(), nil
}

// Token returns the plaintext bearer token of the logged-in user.
func (d *Decoder) Token() (string, error) {
	s, err := d.Load()
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// Load decodes the full session. Errors satisfying IsAbsent mean no usable
// session is configured; errors satisfying IsCorrupt mean a record for the
// logged-in user exists but could not be read.
func (d *Decoder) Load() (*Session, error) {
	cfg, err := d.Config()
	if err != nil {
		return nil, err
	}

	if cfg.VaultBackendType != FileBackend {
		logging.Debug("Session", "only the %q vault backend is supported, config has %q", FileBackend, cfg.VaultBackendType)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.VaultBackendType)
	}
	if cfg.LoggedInUserEmail == "" {
		return nil, fmt.Errorf("%w: loggedInUserEmail", ErrIncompleteConfig)
	}

	passphrase, err := d.resolvePassphrase(cfg)
	if err != nil {
		return nil, err
	}

	path, err := d.recordPath(cfg.LoggedInUserEmail)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- path is confined to the keyring directory by recordPath
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, path)
		}
		return nil, &RecordFormatError{Path: path, Reason: "unreadable", Cause: err}
	}

	token, err := decryptRecord(path, string(data), passphrase)
	if err != nil {
		return nil, err
	}

	return &Session{
		User:  cfg.LoggedInUserEmail,
		URL:   cfg.URL(),
		Token: token,
	}, nil
}

// Passphrase returns the vault passphrase in effect: the WithPassphrase
// value, else the one stored in the config, else INFISICAL_VAULT_FILE_PASSPHRASE.
func (d *Decoder) Passphrase() ([]byte, error) {
	if len(d.passphrase) > 0 {
		return d.passphrase, nil
	}
	cfg, err := d.Config()
	if err != nil {
		return nil, err
	}
	return d.resolvePassphrase(cfg)
}

func (d *Decoder) resolvePassphrase(cfg *Config) ([]byte, error) {
	if len(d.passphrase) > 0 {
		return d.passphrase, nil
	}
	key, ok, err := cfg.passphrase()
	if err != nil {
		return nil, err
	}
	if ok {
		return key, nil
	}
	if env := d.getenv(PassphraseEnvVar); env != "" {
		return []byte(env), nil
	}
	return nil, fmt.Errorf("%w: vaultBackendPassphrase", ErrIncompleteConfig)
}

// recordPath maps a user identifier to its record file. The identifier is
// path-escaped so it can never leave the keyring directory.
func (d *Decoder) recordPath(user string) (string, error) {
	name := RecordName(user)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid user identifier %q", ErrIncompleteConfig, user)
	}
	return filepath.Join(d.keyringDir, name), nil
}

// RecordName returns the file name used for a user's keyring record.
func RecordName(user string) string {
	return url.PathEscape(strings.TrimSpace(user))
}

// Store seals token for user with passphrase and writes it to the keyring
// directory, replacing any existing record. The directory is created with
// owner-only permissions.
func (d *Decoder) Store(user, token string, passphrase []byte) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase is required")
	}

	path, err := d.recordPath(user)
	if err != nil {
		return err
	}

	record, err := EncodeRecord(token, passphrase)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(d.keyringDir, 0700); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "keyring_store",
			Outcome: "failure",
			Target:  path,
			Details: err.Error(),
		})
		return fmt.Errorf("failed to create keyring directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(record), 0600); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "keyring_store",
			Outcome: "failure",
			Target:  path,
			Details: err.Error(),
		})
		return fmt.Errorf("failed to write keyring record: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "keyring_store",
		Outcome: "success",
		Target:  path,
	})
	return nil
}

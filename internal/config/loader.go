package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"infisicalauth/internal/httpclient"
	"infisicalauth/pkg/logging"
)

// envBindings maps settings keys to the environment variables read for them.
// Credential values are deliberately absent: the environment provider of the
// credential chain reads those itself, so flags and the settings file are
// the only way to supply explicit ones.
var envBindings = map[string][]string{
	KeyDefaultURL:        {EnvPrefix + "_URL"},
	KeyVerifySSL:         {httpclient.EnvVerifySSL},
	KeyCACertFile:        {httpclient.EnvCACertFile},
	KeyCACertDir:         {httpclient.EnvCACertDir},
	KeyTimeout:           {EnvPrefix + "_TIMEOUT"},
	KeyPreferToken:       {EnvPrefix + "_PREFER_TOKEN"},
	KeySessionConfigPath: {EnvPrefix + "_SESSION_CONFIG"},
	KeyKeyringDir:        {EnvPrefix + "_KEYRING_DIR"},
	KeyLogLevel:          {EnvPrefix + "_LOG_LEVEL"},
	KeyLogFormat:         {EnvPrefix + "_LOG_FORMAT"},
}

// GetDefaultConfigDir returns the directory searched for the settings file.
func GetDefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// Load resolves Settings from, in increasing precedence: defaults, the
// settings file, the environment and flags that were explicitly set.
// configFile names the settings file; empty searches the default directory
// and tolerates a missing file.
func Load(configFile string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	if err := bind(v, flags); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		if dir, err := GetDefaultConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading settings from %s: %w", v.ConfigFileUsed(), err)
		}
		logging.Debug("Config", "No settings file found, using defaults")
	} else {
		logging.Debug("Config", "Loaded settings from %s", v.ConfigFileUsed())
	}

	s := fromViper(v)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func bind(v *viper.Viper, flags *pflag.FlagSet) error {
	defaults := GetDefaultSettings()
	v.SetDefault(KeyDefaultURL, defaults.DefaultURL)
	v.SetDefault(KeyVerifySSL, "true")
	v.SetDefault(KeyTimeout, defaults.Timeout)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLogFormat, defaults.LogFormat)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if flags == nil {
		return nil
	}
	// Only flags the user actually set override the file and environment.
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || !f.Changed {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func fromViper(v *viper.Viper) *Settings {
	return &Settings{
		URL:               strings.TrimRight(v.GetString(KeyURL), "/"),
		DefaultURL:        strings.TrimRight(v.GetString(KeyDefaultURL), "/"),
		Token:             v.GetString(KeyToken),
		ClientID:          v.GetString(KeyClientID),
		ClientSecret:      v.GetString(KeyClientSecret),
		PreferToken:       v.GetBool(KeyPreferToken),
		VerifySSL:         httpclient.ParseVerifySSL(v.GetString(KeyVerifySSL)),
		CACertFile:        v.GetString(KeyCACertFile),
		CACertDir:         v.GetString(KeyCACertDir),
		Timeout:           v.GetDuration(KeyTimeout),
		SessionConfigPath: v.GetString(KeySessionConfigPath),
		KeyringDir:        v.GetString(KeyKeyringDir),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
		ConfigFile:        v.ConfigFileUsed(),
	}
}

// Package config loads and persists anvil's user-level settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCommandTimeoutSeconds bounds execute_command runs when the
	// caller does not pass a timeout.
	DefaultCommandTimeoutSeconds = 30

	configDirName  = ".anvil"
	configFileName = "config.yaml"
)

// Config holds the user-tunable settings for the tool runner.
type Config struct {
	// PatchBinary overrides the patch utility used by apply_diff.
	// Empty means the platform default ("patch").
	PatchBinary string `yaml:"patch_binary,omitempty"`

	// CommandTimeoutSeconds is the default timeout for execute_command.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds,omitempty"`

	// IgnorePatterns are extra gitignore-style patterns applied on top of
	// the workspace's ignore files.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// WhitelistDirs are directories outside the workspace that tools may
	// still read and write, such as ~/.anvil.
	WhitelistDirs []string `yaml:"whitelist_dirs,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		CommandTimeoutSeconds: DefaultCommandTimeoutSeconds,
	}
}

// DefaultPath returns the config file location under the user's home
// directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, configFileName), nil
}

// Load reads the config file at path. A missing file yields the defaults;
// a malformed one is an error. An empty path means the default location.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.CommandTimeoutSeconds <= 0 {
		cfg.CommandTimeoutSeconds = DefaultCommandTimeoutSeconds
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
// An empty path means the default location.
func (c *Config) Save(path string) error {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

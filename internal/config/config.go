// Package config loads the optional kvwalk settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendCLI = "cli"
	BackendSDK = "sdk"

	PolicyReuse       = "reuse"
	PolicyLogoutFirst = "logout-first"

	StoreNone    = "none"
	StoreSession = "session"
	StoreSystem  = "system"

	EnvConfig = "KVWALK_CONFIG"
	EnvTenant = "AZURE_TENANT_ID"

	defaultDir = ".kvwalk"
)

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	Tenant          string   `yaml:"tenant,omitempty"`
	Subscription    string   `yaml:"subscription,omitempty"`
	Timeout         Duration `yaml:"timeout,omitempty"`
	Verbose         bool     `yaml:"verbose,omitempty"`
	LogDir          string   `yaml:"log_dir,omitempty"`
	StateDir        string   `yaml:"state_dir,omitempty"`
	Backend         string   `yaml:"backend,omitempty"`
	AZPath          string   `yaml:"az_path,omitempty"`
	LoginPolicy     string   `yaml:"login_policy,omitempty"`
	CredentialStore string   `yaml:"credential_store,omitempty"`
	MaxFailedLogins int      `yaml:"max_failed_logins,omitempty"`
	Lockout         Duration `yaml:"lockout,omitempty"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	base := baseDir()
	return &Config{
		Timeout:         Duration(30 * time.Second),
		LogDir:          filepath.Join(base, "logs"),
		StateDir:        filepath.Join(base, "state"),
		Backend:         BackendCLI,
		AZPath:          "az",
		LoginPolicy:     PolicyReuse,
		CredentialStore: StoreNone,
		MaxFailedLogins: 5,
		Lockout:         Duration(5 * time.Minute),
	}
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDir
	}
	return filepath.Join(home, defaultDir)
}

// Path returns the config file location: explicit, then $KVWALK_CONFIG, then ~/.kvwalk/config.yaml.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(baseDir(), "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.Tenant == "" {
		cfg.Tenant = os.Getenv(EnvTenant)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCLI, BackendSDK:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendCLI, BackendSDK)
	}
	switch c.LoginPolicy {
	case PolicyReuse, PolicyLogoutFirst:
	default:
		return fmt.Errorf("unknown login_policy %q (want %s or %s)", c.LoginPolicy, PolicyReuse, PolicyLogoutFirst)
	}
	switch c.CredentialStore {
	case StoreNone, StoreSession, StoreSystem:
	default:
		return fmt.Errorf("unknown credential_store %q", c.CredentialStore)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxFailedLogins < 0 {
		return fmt.Errorf("max_failed_logins cannot be negative")
	}
	return nil
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout)
}

func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.Lockout)
}

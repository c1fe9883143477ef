// Package config loads account configuration from a TOML file.
//
// Secrets can be indirected through the environment with ${VAR}
// references; a .env file next to the config is loaded first.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

// DefaultPollInterval applies when an account sets no poll_interval.
const DefaultPollInterval = 5 * time.Minute

// ErrNoAccounts indicates the config file declares no accounts.
var ErrNoAccounts = errors.New("config: no accounts configured")

// Account is one configured mailbox.
//
// The authentication mode is derived once from which fields are
// populated: access_token forces static mode; tenant_id plus
// client_secret select tenant mode; anything else is personal mode.
type Account struct {
	Name string `toml:"name"`

	ClientID          string   `toml:"client_id"`
	TenantID          string   `toml:"tenant_id"`
	ClientSecret      string   `toml:"client_secret"`
	UserPrincipalName string   `toml:"user_principal_name"`
	Username          string   `toml:"username"`
	Password          string   `toml:"password"`
	AccessToken       string   `toml:"access_token"`
	Scopes            []string `toml:"scopes"`

	PollInterval string `toml:"poll_interval"`
	MarkRead     bool   `toml:"mark_read"`
	Limit        int    `toml:"limit"`
	Disabled     bool   `toml:"disabled"`
}

// Config is the root of the TOML file.
type Config struct {
	// DataDir holds the message archive. Defaults to ~/.mailpoll/data.
	DataDir  string    `toml:"data_dir"`
	Accounts []Account `toml:"accounts"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mailpoll.toml"
	}
	return filepath.Join(home, ".mailpoll", "mailpoll.toml")
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	// Best effort; secrets may come from the real environment instead.
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err == nil {
		logger.Debug("config: loaded .env next to %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Accounts) == 0 {
		return nil, ErrNoAccounts
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(path), "data")
	}

	for i := range cfg.Accounts {
		acct := &cfg.Accounts[i]
		expandSecrets(acct)
		if acct.Name == "" {
			acct.Name = acct.Username
		}
		if acct.Name == "" {
			acct.Name = acct.UserPrincipalName
		}
		if err := acct.validate(); err != nil {
			return nil, fmt.Errorf("account %q: %w", acct.Name, err)
		}
	}

	return &cfg, nil
}

// expandSecrets resolves ${VAR} references in credential fields.
func expandSecrets(acct *Account) {
	acct.ClientSecret = os.ExpandEnv(acct.ClientSecret)
	acct.Password = os.ExpandEnv(acct.Password)
	acct.AccessToken = os.ExpandEnv(acct.AccessToken)
}

func (a *Account) validate() error {
	switch {
	case a.AccessToken != "":
		return nil
	case a.TenantID != "" && a.ClientSecret != "":
		if a.ClientID == "" {
			return errors.New("client_id is required for tenant authentication")
		}
		if a.UserPrincipalName == "" {
			return errors.New("user_principal_name is required for tenant authentication")
		}
		return nil
	default:
		if a.ClientID == "" {
			return errors.New("client_id is required")
		}
		if a.Username == "" {
			return errors.New("username is required for personal authentication")
		}
		return nil
	}
}

// AuthConfig derives the tagged credential variant for the account.
// The derivation happens once here and is never re-evaluated.
func (a *Account) AuthConfig() domain.AuthConfig {
	switch {
	case a.AccessToken != "":
		return domain.StaticAuth{AccessToken: a.AccessToken}
	case a.TenantID != "" && a.ClientSecret != "":
		return domain.TenantAuth{
			ClientID:     a.ClientID,
			TenantID:     a.TenantID,
			ClientSecret: a.ClientSecret,
			Scopes:       a.Scopes,
		}
	default:
		return domain.PersonalAuth{
			ClientID: a.ClientID,
			Username: a.Username,
			Password: a.Password,
			Scopes:   a.Scopes,
		}
	}
}

// Principal returns the mailbox owner used in tenant-mode endpoints.
func (a *Account) Principal() string {
	return a.UserPrincipalName
}

// Interval parses the account's poll interval, falling back to the
// default on absence or parse failure.
func (a *Account) Interval() time.Duration {
	if a.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(a.PollInterval)
	if err != nil || d <= 0 {
		logger.Warn("config: account %q: invalid poll_interval %q, using default", a.Name, a.PollInterval)
		return DefaultPollInterval
	}
	return d
}

// FindAccount returns the named account, or the first account when
// name is empty.
func (c *Config) FindAccount(name string) (*Account, error) {
	if name == "" {
		return &c.Accounts[0], nil
	}
	for i := range c.Accounts {
		if c.Accounts[i].Name == name {
			return &c.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchAccount, name)
}

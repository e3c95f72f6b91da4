// Package config loads groupsync settings from defaults, an optional config
// file, an optional dotenv file and GROUPSYNC_* environment variables, in
// increasing order of precedence.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/hashicorp/go-hclog"

	"github.com/isometry/groupsync/internal/pager"
)

// Supported backends.
const (
	BackendCognito = "cognito"
	BackendLDAP    = "ldap"
)

var backends = []string{BackendCognito, BackendLDAP}

// MaxConcurrency bounds Config.Concurrency.
const MaxConcurrency = 32

// Config holds groupsync settings.
type Config struct {
	Backend  string `toml:"backend" yaml:"backend" default:"cognito"`
	PageSize int32  `toml:"page_size" yaml:"page_size" default:"60"` // see pager.ValidatePageSize
	LogLevel string `toml:"log_level" yaml:"log_level" default:"warn"`

	// RateLimit caps directory calls per second. Zero means unlimited.
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"`

	// Concurrency is how many groups export lists members for at once.
	Concurrency int `toml:"concurrency" yaml:"concurrency" default:"4"`

	// Region is the AWS region of the Cognito user pool.
	Region string `toml:"region" yaml:"region" default:"us-west-2"`

	LDAP LDAPConfig `toml:"ldap" yaml:"ldap"`
}

// LDAPConfig configures the Active Directory backend.
type LDAPConfig struct {
	URLs   []string `toml:"urls" yaml:"urls"`
	Domain string   `toml:"domain" yaml:"domain"` // SRV discovery when URLs is empty
	BaseDN string   `toml:"base_dn" yaml:"base_dn"`

	// GroupContainer is the DN used when a snapshot or export names no
	// container. Defaults to BaseDN.
	GroupContainer string `toml:"group_container" yaml:"group_container"`

	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`

	KerberosRealm  string `toml:"kerberos_realm" yaml:"kerberos_realm"`
	KerberosKeytab string `toml:"kerberos_keytab" yaml:"kerberos_keytab"`
	KerberosConfig string `toml:"kerberos_config" yaml:"kerberos_config"`
	KerberosCCache string `toml:"kerberos_ccache" yaml:"kerberos_ccache"`
	KerberosSPN    string `toml:"kerberos_spn" yaml:"kerberos_spn"`

	UseTLS             bool          `toml:"use_tls" yaml:"use_tls" default:"true"`
	InsecureSkipVerify bool          `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Timeout            time.Duration `toml:"timeout" yaml:"timeout" default:"30s"`
}

// Container returns the group container DN.
func (c LDAPConfig) Container() string {
	if c.GroupContainer != "" {
		return c.GroupContainer
	}
	return c.BaseDN
}

// Default returns a Config with all defaults applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the combined settings.
func (c *Config) Validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (supported: %s)", c.Backend, strings.Join(backends, ", "))
	}

	if _, err := pager.ValidatePageSize(c.PageSize); err != nil {
		return fmt.Errorf("page_size: %w", err)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative, got %g", c.RateLimit)
	}

	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Concurrency)
	}

	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	switch c.Backend {
	case BackendCognito:
		if c.Region == "" {
			return fmt.Errorf("region is required for the %s backend", BackendCognito)
		}
	case BackendLDAP:
		return c.LDAP.validate()
	}

	return nil
}

func (c LDAPConfig) validate() error {
	if len(c.URLs) == 0 && c.Domain == "" {
		return fmt.Errorf("ldap: either urls or domain must be set")
	}

	for _, u := range c.URLs {
		if !strings.HasPrefix(u, "ldap://") && !strings.HasPrefix(u, "ldaps://") {
			return fmt.Errorf("ldap: invalid URL %q: must start with ldap:// or ldaps://", u)
		}
	}

	if c.Username == "" {
		return fmt.Errorf("ldap: username is required")
	}

	if c.KerberosRealm == "" && c.Password == "" {
		return fmt.Errorf("ldap: password is required for simple bind")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("ldap: timeout must be positive")
	}

	return nil
}

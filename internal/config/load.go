package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GROUPSYNC_"

// DefaultEnvFile is read when present and no other env file is named.
const DefaultEnvFile = ".env"

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Options selects the configuration sources.
type Options struct {
	// File is a TOML (.toml) or YAML (.yaml, .yml) config file. Optional.
	File string

	// EnvFile is a dotenv file. An explicitly named file must exist;
	// DefaultEnvFile is read only when present.
	EnvFile string

	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup LookupFunc

	// Override runs after every source is applied and before validation.
	// Command-line flags use it.
	Override func(*Config)
}

// Load assembles a validated Config from defaults, File, EnvFile and the
// environment.
func Load(opts Options) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if opts.File != "" {
		if err := decodeFile(opts.File, cfg); err != nil {
			return nil, err
		}
	}

	lookup, err := envLookup(opts)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if opts.Override != nil {
		opts.Override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config file %s: unsupported extension %q (use .toml, .yaml or .yml)", path, ext)
	}

	return nil
}

// envLookup layers the process environment over the dotenv file. Variables
// already set in the environment win.
func envLookup(opts Options) (LookupFunc, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	path, required := opts.EnvFile, true
	if path == "" {
		path, required = DefaultEnvFile, false
	}

	dotenv, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

type envBinding struct {
	key string
	set func(c *Config, value string) error
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func boolVar(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

var envBindings = []envBinding{
	{"BACKEND", stringVar(func(c *Config) *string { return &c.Backend })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.LogLevel })},
	{"REGION", stringVar(func(c *Config) *string { return &c.Region })},
	{"PAGE_SIZE", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return err
		}
		c.PageSize = int32(n)
		return nil
	}},
	{"RATE_LIMIT", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.RateLimit = f
		return nil
	}},
	{"CONCURRENCY", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Concurrency = n
		return nil
	}},
	{"LDAP_URLS", func(c *Config, v string) error {
		c.LDAP.URLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.LDAP.URLs = append(c.LDAP.URLs, u)
			}
		}
		return nil
	}},
	{"LDAP_DOMAIN", stringVar(func(c *Config) *string { return &c.LDAP.Domain })},
	{"LDAP_BASE_DN", stringVar(func(c *Config) *string { return &c.LDAP.BaseDN })},
	{"LDAP_GROUP_CONTAINER", stringVar(func(c *Config) *string { return &c.LDAP.GroupContainer })},
	{"LDAP_USERNAME", stringVar(func(c *Config) *string { return &c.LDAP.Username })},
	{"LDAP_PASSWORD", stringVar(func(c *Config) *string { return &c.LDAP.Password })},
	{"LDAP_KERBEROS_REALM", stringVar(func(c *Config) *string { return &c.LDAP.KerberosRealm })},
	{"LDAP_KERBEROS_KEYTAB", stringVar(func(c *Config) *string { return &c.LDAP.KerberosKeytab })},
	{"LDAP_KERBEROS_CONFIG", stringVar(func(c *Config) *string { return &c.LDAP.KerberosConfig })},
	{"LDAP_KERBEROS_CCACHE", stringVar(func(c *Config) *string { return &c.LDAP.KerberosCCache })},
	{"LDAP_KERBEROS_SPN", stringVar(func(c *Config) *string { return &c.LDAP.KerberosSPN })},
	{"LDAP_USE_TLS", boolVar(func(c *Config) *bool { return &c.LDAP.UseTLS })},
	{"LDAP_INSECURE_SKIP_VERIFY", boolVar(func(c *Config) *bool { return &c.LDAP.InsecureSkipVerify })},
	{"LDAP_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.LDAP.Timeout = d
		return nil
	}},
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	for _, b := range envBindings {
		key := EnvPrefix + b.key
		v, ok := lookup(key)
		if !ok {
			continue
		}
		if err := b.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/groupsync/internal/config"
)

// ConnectionConfig holds LDAP connection configuration.
type ConnectionConfig struct {
	// Connection settings
	Domain   string        // Domain for SRV discovery
	LDAPURLs []string      // Direct LDAP URLs (overrides domain)
	BaseDN   string        // Base DN for user searches
	Timeout  time.Duration // Connection and request timeout

	// Authentication settings
	Username       string // Username for authentication (DN, UPN, or SAM format)
	Password       string // Password for simple bind authentication
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosConfig string // Path to Kerberos config file (krb5.conf)
	KerberosCCache string // Path to Kerberos credential cache
	KerberosSPN    string // Service principal override

	// TLS settings
	TLSConfig *tls.Config
	UseTLS    bool // Upgrade plain connections with StartTLS
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Timeout: 30 * time.Second,
		UseTLS:  true,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// NewConnectionConfig converts the [ldap] configuration block.
func NewConnectionConfig(c config.LDAPConfig) *ConnectionConfig {
	cfg := DefaultConfig()
	cfg.Domain = c.Domain
	cfg.LDAPURLs = c.URLs
	cfg.BaseDN = c.BaseDN
	cfg.Username = c.Username
	cfg.Password = c.Password
	cfg.KerberosRealm = c.KerberosRealm
	cfg.KerberosKeytab = c.KerberosKeytab
	cfg.KerberosConfig = c.KerberosConfig
	cfg.KerberosCCache = c.KerberosCCache
	cfg.KerberosSPN = c.KerberosSPN
	cfg.UseTLS = c.UseTLS
	cfg.TLSConfig.InsecureSkipVerify = c.InsecureSkipVerify
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	return cfg
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// Client provides the LDAP operations used by the managers.
type Client interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Add(ctx context.Context, req *AddRequest) error
	Modify(ctx context.Context, req *ModifyRequest) error
	Close() error
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
	TimeLimit  time.Duration

	// PageSize requests one page of a paged search when non-zero. Cookie
	// continues a previous page.
	PageSize uint32
	Cookie   []byte
}

// SearchResult contains search results and metadata.
type SearchResult struct {
	Entries []*ldap.Entry

	// Cookie continues a paged search. It is empty on the last page.
	Cookie []byte
}

// AddRequest encapsulates LDAP add parameters.
type AddRequest struct {
	DN         string
	Attributes map[string][]string
}

// ModifyRequest encapsulates LDAP modify parameters.
type ModifyRequest struct {
	DN            string
	AddAttributes map[string][]string
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns the string representation of the scope.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if c.KerberosRealm != "" {
		return AuthMethodKerberos
	}
	return AuthMethodSimpleBind
}

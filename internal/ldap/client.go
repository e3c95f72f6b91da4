package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/logging"
)

// conn is the subset of *ldap.Conn used by client.
type conn interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Close() error
}

// client implements the Client interface over one bound connection.
type client struct {
	conn   conn
	config *ConnectionConfig
	server *ServerInfo
}

// NewClient connects to the first reachable server and authenticates.
func NewClient(ctx context.Context, config *ConnectionConfig) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Creating new LDAP client", map[string]any{
		"domain":          config.Domain,
		"ldap_urls_count": len(config.LDAPURLs),
		"auth_method":     config.GetAuthMethod().String(),
		"use_tls":         config.UseTLS,
	})

	servers, err := resolveServers(ctx, config, NewSRVDiscovery(ctx))
	if err != nil {
		return nil, mapError("connect", config.Domain, err)
	}

	var errs []error
	for _, server := range servers {
		var c *client
		err := logging.LogOperation(ctx, logging.SubsystemLDAP, "connect", map[string]any{
			"server":      ServerInfoToURL(server),
			"source":      server.Source,
			"auth_method": config.GetAuthMethod().String(),
		}, func() error {
			var err error
			c, err = dial(ctx, config, server)
			return err
		})
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}

	return nil, mapError("connect", config.Domain, fmt.Errorf("no LDAP server reachable: %w", errors.Join(errs...)))
}

// resolveServers returns configured URLs, or discovers servers for the domain.
func resolveServers(ctx context.Context, config *ConnectionConfig, discovery *SRVDiscovery) ([]*ServerInfo, error) {
	if len(config.LDAPURLs) > 0 {
		servers := make([]*ServerInfo, 0, len(config.LDAPURLs))
		for _, url := range config.LDAPURLs {
			server, err := ParseLDAPURL(url)
			if err != nil {
				return nil, fmt.Errorf("invalid LDAP URL %s: %w", url, err)
			}
			servers = append(servers, server)
		}
		return servers, nil
	}

	if config.Domain == "" {
		return nil, errors.New("either domain or LDAP URLs must be specified")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return discovery.DiscoverServers(ctx, config.Domain)
}

func dial(ctx context.Context, config *ConnectionConfig, server *ServerInfo) (*client, error) {
	url := ServerInfoToURL(server)

	var conn *ldap.Conn
	var err error

	if server.UseTLS {
		conn, err = ldap.DialURL(url, ldap.DialWithTLSConfig(tlsConfigFor(config, server)))
	} else {
		conn, err = ldap.DialURL(url)
		if err == nil && config.UseTLS {
			if tlsErr := conn.StartTLS(tlsConfigFor(config, server)); tlsErr != nil {
				_ = conn.Close()
				err = fmt.Errorf("StartTLS: %w", tlsErr)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetTimeout(config.Timeout)

	if err := authenticate(ctx, conn, config, server); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to authenticate to %s: %w", url, err)
	}

	return &client{conn: conn, config: config, server: server}, nil
}

func tlsConfigFor(config *ConnectionConfig, server *ServerInfo) *tls.Config {
	cfg := config.TLSConfig.Clone()
	if cfg == nil {
		cfg = DefaultConfig().TLSConfig
	}
	if cfg.ServerName == "" {
		cfg.ServerName = server.Host
	}
	return cfg
}

func authenticate(ctx context.Context, conn *ldap.Conn, config *ConnectionConfig, server *ServerInfo) error {
	switch method := config.GetAuthMethod(); method {
	case AuthMethodSimpleBind:
		if config.Username == "" {
			return errors.New("username is required for simple bind authentication")
		}
		tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Performing simple bind", map[string]any{
			"username": config.Username,
		})
		return conn.Bind(config.Username, config.Password)
	case AuthMethodKerberos:
		return performKerberosAuth(ctx, conn, config, server)
	default:
		return fmt.Errorf("unsupported authentication method: %s", method)
	}
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}

// Search performs one LDAP search. A non-zero PageSize requests a single
// page and returns the continuation cookie.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, errors.New("search request cannot be nil")
	}

	fields := map[string]any{
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"page_size":  req.PageSize,
	}

	var controls []ldap.Control
	if req.PageSize > 0 {
		paging := ldap.NewControlPaging(req.PageSize)
		if len(req.Cookie) > 0 {
			paging.SetCookie(req.Cookie)
		}
		controls = append(controls, paging)
	}

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		ldap.NeverDerefAliases,
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false,
		req.Filter,
		req.Attributes,
		controls,
	)

	start := time.Now()
	result, err := c.conn.Search(ldapReq)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		logLDAPError(ctx, "search", err, fields)
		return nil, err
	}

	out := &SearchResult{Entries: result.Entries}
	if req.PageSize > 0 {
		if paging, ok := ldap.FindControl(result.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging); ok {
			out.Cookie = paging.Cookie
		}
	}

	fields["entries_found"] = len(out.Entries)
	fields["has_more"] = len(out.Cookie) > 0
	tflog.SubsystemTrace(ctx, logging.SubsystemLDAP, "Search completed", fields)

	return out, nil
}

// Add creates a new LDAP entry.
func (c *client) Add(ctx context.Context, req *AddRequest) error {
	if req == nil {
		return errors.New("add request cannot be nil")
	}

	ldapReq := ldap.NewAddRequest(req.DN, nil)
	for _, attr := range sortedKeys(req.Attributes) {
		ldapReq.Attribute(attr, req.Attributes[attr])
	}

	if err := c.conn.Add(ldapReq); err != nil {
		logLDAPError(ctx, "add", err, map[string]any{"dn": req.DN})
		return err
	}
	return nil
}

// Modify adds attribute values to an existing entry.
func (c *client) Modify(ctx context.Context, req *ModifyRequest) error {
	if req == nil {
		return errors.New("modify request cannot be nil")
	}

	ldapReq := ldap.NewModifyRequest(req.DN, nil)
	for _, attr := range sortedKeys(req.AddAttributes) {
		ldapReq.Add(attr, req.AddAttributes[attr])
	}

	if err := c.conn.Modify(ldapReq); err != nil {
		logLDAPError(ctx, "modify", err, map[string]any{"dn": req.DN})
		return err
	}
	return nil
}

func sortedKeys(m map[string][]string) []string {
	return slices.Sorted(maps.Keys(m))
}

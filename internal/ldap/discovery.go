package ldap

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/logging"
)

// srvResolver is satisfied by *net.Resolver.
type srvResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// SRVDiscovery handles DNS SRV record discovery for domain controllers.
type SRVDiscovery struct {
	ctx      context.Context // Logging context with LDAP subsystem
	resolver srvResolver
}

// NewSRVDiscovery creates a new SRV discovery instance.
func NewSRVDiscovery(ctx context.Context) *SRVDiscovery {
	return &SRVDiscovery{
		ctx:      ctx,
		resolver: net.DefaultResolver,
	}
}

// DiscoverServers discovers LDAP servers for a domain using SRV records:
// _ldaps._tcp.<domain> is preferred, then _ldap._tcp.<domain>. When neither
// exists the domain name itself is tried on the standard ports.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	tflog.SubsystemDebug(d.ctx, logging.SubsystemLDAP, "Starting server discovery for domain", map[string]any{
		"domain": domain,
	})

	srvRecords := []struct {
		service string
		useTLS  bool
	}{
		{"_ldaps._tcp." + domain, true},
		{"_ldap._tcp." + domain, false},
	}

	var allServers []*ServerInfo
	for _, record := range srvRecords {
		servers, err := d.lookupSRV(ctx, record.service, record.useTLS)
		if err != nil {
			tflog.SubsystemDebug(d.ctx, logging.SubsystemLDAP, "SRV lookup failed, continuing to next service", map[string]any{
				"service": record.service,
				"error":   err.Error(),
			})
			continue
		}
		allServers = append(allServers, servers...)

		if record.useTLS {
			break
		}
	}

	if len(allServers) == 0 {
		tflog.SubsystemDebug(d.ctx, logging.SubsystemLDAP, "No SRV records found, using fallback servers", map[string]any{
			"domain": domain,
		})
		return createFallbackServers(domain), nil
	}

	sortServersByPriority(allServers)

	tflog.SubsystemDebug(d.ctx, logging.SubsystemLDAP, "Server discovery completed", map[string]any{
		"server_count": len(allServers),
	})
	return allServers, nil
}

func (d *SRVDiscovery) lookupSRV(ctx context.Context, service string, useTLS bool) ([]*ServerInfo, error) {
	_, records, err := d.resolver.LookupSRV(ctx, "", "", service)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup failed for %s: %w", service, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no SRV records found for %s", service)
	}

	servers := make([]*ServerInfo, 0, len(records))
	for _, srv := range records {
		servers = append(servers, &ServerInfo{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     int(srv.Port),
			UseTLS:   useTLS,
			Priority: int(srv.Priority),
			Weight:   int(srv.Weight),
			Source:   "srv",
		})
	}
	return servers, nil
}

func createFallbackServers(domain string) []*ServerInfo {
	return []*ServerInfo{
		{Host: domain, Port: 636, UseTLS: true, Priority: 0, Weight: 100, Source: "fallback"},
		{Host: domain, Port: 389, UseTLS: false, Priority: 1, Weight: 100, Source: "fallback"},
	}
}

// sortServersByPriority orders by ascending priority, then descending weight.
func sortServersByPriority(servers []*ServerInfo) {
	slices.SortStableFunc(servers, func(a, b *ServerInfo) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return b.Weight - a.Weight
	})
}

// ServerInfoToURL converts ServerInfo to LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(server.Host, strconv.Itoa(server.Port)))
}

// ParseLDAPURL parses an LDAP URL into ServerInfo.
func ParseLDAPURL(raw string) (*ServerInfo, error) {
	if raw == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URL: %w", err)
	}

	server := &ServerInfo{Host: u.Hostname(), Weight: 100, Source: "config"}

	switch u.Scheme {
	case "ldaps":
		server.UseTLS, server.Port = true, 636
	case "ldap":
		server.Port = 389
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
		server.Port = port
	}

	if server.Host == "" {
		return nil, fmt.Errorf("no hostname found in URL: %s", raw)
	}
	if server.Port <= 0 || server.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", server.Port)
	}

	return server, nil
}

package ldap

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver answers SRV lookups from a fixed table keyed by name.
type fakeResolver struct {
	records map[string][]*net.SRV
	lookups []string
}

func (f *fakeResolver) LookupSRV(_ context.Context, _, _, name string) (string, []*net.SRV, error) {
	f.lookups = append(f.lookups, name)
	if records, ok := f.records[name]; ok {
		return name, records, nil
	}
	return "", nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func newTestDiscovery(records map[string][]*net.SRV) (*SRVDiscovery, *fakeResolver) {
	resolver := &fakeResolver{records: records}
	return &SRVDiscovery{ctx: context.Background(), resolver: resolver}, resolver
}

func TestSRVDiscovery_DiscoverServers(t *testing.T) {
	t.Run("empty domain", func(t *testing.T) {
		discovery, _ := newTestDiscovery(nil)
		_, err := discovery.DiscoverServers(context.Background(), "")
		assert.Error(t, err)
	})

	t.Run("ldaps records win", func(t *testing.T) {
		discovery, resolver := newTestDiscovery(map[string][]*net.SRV{
			"_ldaps._tcp.example.com": {
				{Target: "dc2.example.com.", Port: 636, Priority: 10, Weight: 50},
				{Target: "dc1.example.com.", Port: 636, Priority: 0, Weight: 100},
			},
			"_ldap._tcp.example.com": {
				{Target: "dc3.example.com.", Port: 389},
			},
		})

		servers, err := discovery.DiscoverServers(context.Background(), "example.com")
		require.NoError(t, err)
		require.Len(t, servers, 2)
		assert.Equal(t, "dc1.example.com", servers[0].Host)
		assert.True(t, servers[0].UseTLS)
		assert.Equal(t, "srv", servers[0].Source)
		assert.Equal(t, "dc2.example.com", servers[1].Host)
		assert.Equal(t, []string{"_ldaps._tcp.example.com"}, resolver.lookups)
	})

	t.Run("plain ldap records", func(t *testing.T) {
		discovery, _ := newTestDiscovery(map[string][]*net.SRV{
			"_ldap._tcp.example.com": {
				{Target: "dc3.example.com.", Port: 389},
			},
		})

		servers, err := discovery.DiscoverServers(context.Background(), "example.com")
		require.NoError(t, err)
		require.Len(t, servers, 1)
		assert.Equal(t, "ldap://dc3.example.com:389", ServerInfoToURL(servers[0]))
	})

	t.Run("fallback", func(t *testing.T) {
		discovery, _ := newTestDiscovery(nil)

		servers, err := discovery.DiscoverServers(context.Background(), "example.com")
		require.NoError(t, err)
		require.Len(t, servers, 2)
		assert.Equal(t, "ldaps://example.com:636", ServerInfoToURL(servers[0]))
		assert.Equal(t, "ldap://example.com:389", ServerInfoToURL(servers[1]))
	})
}

func TestSortServersByPriority(t *testing.T) {
	servers := []*ServerInfo{
		{Host: "c", Priority: 1, Weight: 100},
		{Host: "b", Priority: 0, Weight: 10},
		{Host: "a", Priority: 0, Weight: 90},
	}

	sortServersByPriority(servers)

	var hosts []string
	for _, s := range servers {
		hosts = append(hosts, s.Host)
	}
	assert.Equal(t, []string{"a", "b", "c"}, hosts)
}

func TestParseLDAPURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *ServerInfo
		wantErr bool
	}{
		{
			name: "ldaps with port",
			url:  "ldaps://dc1.example.com:636",
			want: &ServerInfo{Host: "dc1.example.com", Port: 636, UseTLS: true, Weight: 100, Source: "config"},
		},
		{
			name: "ldap without port",
			url:  "ldap://dc1.example.com",
			want: &ServerInfo{Host: "dc1.example.com", Port: 389, Weight: 100, Source: "config"},
		},
		{
			name: "global catalog port",
			url:  "ldap://dc1.example.com:3268",
			want: &ServerInfo{Host: "dc1.example.com", Port: 3268, Weight: 100, Source: "config"},
		},
		{
			name: "ipv6 host",
			url:  "ldaps://[::1]:1636",
			want: &ServerInfo{Host: "::1", Port: 1636, UseTLS: true, Weight: 100, Source: "config"},
		},
		{name: "empty", url: "", wantErr: true},
		{name: "wrong scheme", url: "https://dc1.example.com", wantErr: true},
		{name: "no host", url: "ldap://", wantErr: true},
		{name: "bad port", url: "ldap://dc1.example.com:70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLDAPURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerInfoToURL_IPv6(t *testing.T) {
	assert.Equal(t, "ldaps://[::1]:636", ServerInfoToURL(&ServerInfo{Host: "::1", Port: 636, UseTLS: true}))
}

package ldap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records the go-ldap requests built by client.
type fakeConn struct {
	searches []*ldap.SearchRequest
	adds     []*ldap.AddRequest
	modifies []*ldap.ModifyRequest

	result *ldap.SearchResult
	err    error
	closed bool
}

func (f *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.searches = append(f.searches, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeConn) Add(req *ldap.AddRequest) error {
	f.adds = append(f.adds, req)
	return f.err
}

func (f *fakeConn) Modify(req *ldap.ModifyRequest) error {
	f.modifies = append(f.modifies, req)
	return f.err
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestClient_Search(t *testing.T) {
	fc := &fakeConn{result: &ldap.SearchResult{
		Entries: []*ldap.Entry{createMockUserEntry("alice")},
	}}
	c := &client{conn: fc, config: DefaultConfig()}

	result, err := c.Search(context.Background(), &SearchRequest{
		BaseDN:     testBaseDN,
		Scope:      ScopeWholeSubtree,
		Filter:     "(objectClass=user)",
		Attributes: []string{"sAMAccountName"},
		SizeLimit:  1,
		TimeLimit:  10 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Nil(t, result.Cookie)

	require.Len(t, fc.searches, 1)
	sent := fc.searches[0]
	assert.Equal(t, testBaseDN, sent.BaseDN)
	assert.Equal(t, ldap.ScopeWholeSubtree, sent.Scope)
	assert.Equal(t, 1, sent.SizeLimit)
	assert.Equal(t, 10, sent.TimeLimit)
	assert.Empty(t, sent.Controls)
}

func TestClient_Search_Paged(t *testing.T) {
	fc := &fakeConn{result: &ldap.SearchResult{
		Controls: []ldap.Control{&ldap.ControlPaging{PagingSize: 2, Cookie: []byte("next")}},
	}}
	c := &client{conn: fc, config: DefaultConfig()}

	result, err := c.Search(context.Background(), &SearchRequest{
		BaseDN:   testContainer,
		Scope:    ScopeSingleLevel,
		Filter:   "(objectClass=group)",
		PageSize: 2,
		Cookie:   []byte("prev"),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), result.Cookie)

	paging, ok := ldap.FindControl(fc.searches[0].Controls, ldap.ControlTypePaging).(*ldap.ControlPaging)
	require.True(t, ok)
	assert.Equal(t, uint32(2), paging.PagingSize)
	assert.Equal(t, []byte("prev"), paging.Cookie)
	assert.Equal(t, ldap.ScopeSingleLevel, fc.searches[0].Scope)
}

func TestClient_Search_Error(t *testing.T) {
	fc := &fakeConn{err: ldap.NewError(ldap.LDAPResultBusy, errors.New("busy"))}
	c := &client{conn: fc, config: DefaultConfig()}

	_, err := c.Search(context.Background(), &SearchRequest{Filter: "(objectClass=*)"})
	assert.True(t, ldap.IsErrorWithCode(err, ldap.LDAPResultBusy))

	_, err = c.Search(context.Background(), nil)
	assert.Error(t, err)
}

func TestClient_Add(t *testing.T) {
	fc := &fakeConn{}
	c := &client{conn: fc, config: DefaultConfig()}

	err := c.Add(context.Background(), &AddRequest{
		DN: "CN=admins," + testContainer,
		Attributes: map[string][]string{
			"sAMAccountName": {"admins"},
			"cn":             {"admins"},
			"objectClass":    {"top", "group"},
		},
	})
	require.NoError(t, err)

	require.Len(t, fc.adds, 1)
	var types []string
	for _, attr := range fc.adds[0].Attributes {
		types = append(types, attr.Type)
	}
	assert.Equal(t, []string{"cn", "objectClass", "sAMAccountName"}, types)
}

func TestClient_Modify(t *testing.T) {
	fc := &fakeConn{}
	c := &client{conn: fc, config: DefaultConfig()}

	err := c.Modify(context.Background(), &ModifyRequest{
		DN:            testGroupDN,
		AddAttributes: map[string][]string{"member": {"CN=alice," + testBaseDN}},
	})
	require.NoError(t, err)

	require.Len(t, fc.modifies, 1)
	changes := fc.modifies[0].Changes
	require.Len(t, changes, 1)
	assert.Equal(t, uint(ldap.AddAttribute), changes[0].Operation)
	assert.Equal(t, "member", changes[0].Modification.Type)
	assert.Equal(t, []string{"CN=alice," + testBaseDN}, changes[0].Modification.Vals)
}

func TestClient_Close(t *testing.T) {
	fc := &fakeConn{}
	c := &client{conn: fc, config: DefaultConfig()}

	require.NoError(t, c.Close())
	assert.True(t, fc.closed)
}

func TestResolveServers(t *testing.T) {
	t.Run("configured URLs", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LDAPURLs = []string{"ldaps://dc1.example.com", "ldap://dc2.example.com:3268"}

		servers, err := resolveServers(context.Background(), cfg, nil)
		require.NoError(t, err)
		require.Len(t, servers, 2)
		assert.Equal(t, "ldaps://dc1.example.com:636", ServerInfoToURL(servers[0]))
		assert.Equal(t, "ldap://dc2.example.com:3268", ServerInfoToURL(servers[1]))
	})

	t.Run("invalid URL", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LDAPURLs = []string{"http://dc1.example.com"}

		_, err := resolveServers(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("neither URLs nor domain", func(t *testing.T) {
		_, err := resolveServers(context.Background(), DefaultConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("domain discovery", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Domain = "example.com"
		discovery := &SRVDiscovery{ctx: context.Background(), resolver: &fakeResolver{}}

		servers, err := resolveServers(context.Background(), cfg, discovery)
		require.NoError(t, err)
		assert.Equal(t, "fallback", servers[0].Source)
	})
}

func TestTLSConfigFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLSConfig.InsecureSkipVerify = true

	tlsCfg := tlsConfigFor(cfg, &ServerInfo{Host: "dc1.example.com"})
	assert.Equal(t, "dc1.example.com", tlsCfg.ServerName)
	assert.True(t, tlsCfg.InsecureSkipVerify)
	assert.Empty(t, cfg.TLSConfig.ServerName)
}

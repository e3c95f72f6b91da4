package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// UserAttributes are the attributes read for each account by ListUsers. The
// first is the username.
var UserAttributes = []string{"sAMAccountName", "userPrincipalName", "displayName", "givenName", "sn", "mail"}

// UserResolver maps sAMAccountName usernames to user DNs.
type UserResolver struct {
	client  Client
	baseDN  string
	timeout time.Duration
}

// NewUserResolver creates a resolver searching the subtree under baseDN.
func NewUserResolver(client Client, baseDN string) *UserResolver {
	return &UserResolver{
		client:  client,
		baseDN:  baseDN,
		timeout: 30 * time.Second,
	}
}

// SetTimeout sets the LDAP operation timeout.
func (ur *UserResolver) SetTimeout(timeout time.Duration) {
	ur.timeout = timeout
}

// ResolveDN returns the DN of the user account named samAccountName. A
// DOMAIN\username form is accepted and the domain part ignored.
func (ur *UserResolver) ResolveDN(ctx context.Context, samAccountName string) (string, error) {
	if _, name, ok := strings.Cut(samAccountName, `\`); ok {
		samAccountName = name
	}
	if samAccountName == "" {
		return "", invalid("resolve_user", samAccountName, fmt.Errorf("username cannot be empty"))
	}

	searchReq := &SearchRequest{
		BaseDN:     ur.baseDN,
		Scope:      ScopeWholeSubtree,
		Filter:     fmt.Sprintf("(&(objectClass=user)(!(objectClass=computer))(sAMAccountName=%s))", ldap.EscapeFilter(samAccountName)),
		Attributes: []string{"sAMAccountName"},
		SizeLimit:  1,
		TimeLimit:  ur.timeout,
	}

	result, err := ur.client.Search(ctx, searchReq)
	if err != nil {
		return "", mapError("resolve_user", samAccountName, err)
	}

	if len(result.Entries) == 0 {
		return "", notFound("resolve_user", samAccountName, "user %s not found under %s", samAccountName, ur.baseDN)
	}

	return result.Entries[0].DN, nil
}

// ListUsers returns one page of the user accounts under the base DN, with
// the attributes named by UserAttributes.
func (ur *UserResolver) ListUsers(ctx context.Context, pageSize uint32, cookie []byte) ([]*ldap.Entry, []byte, error) {
	searchReq := &SearchRequest{
		BaseDN:     ur.baseDN,
		Scope:      ScopeWholeSubtree,
		Filter:     "(&(objectClass=user)(!(objectClass=computer)))",
		Attributes: UserAttributes,
		TimeLimit:  ur.timeout,
		PageSize:   pageSize,
		Cookie:     cookie,
	}

	result, err := ur.client.Search(ctx, searchReq)
	if err != nil {
		return nil, nil, mapError("list_users", ur.baseDN, err)
	}
	return result.Entries, result.Cookie, nil
}

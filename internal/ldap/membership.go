package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
)

// MembershipManager handles member addition and member listing.
type MembershipManager struct {
	client  Client
	users   *UserResolver
	baseDN  string
	timeout time.Duration
}

// NewMembershipManager creates a membership manager. Users and member
// searches are rooted at baseDN.
func NewMembershipManager(client Client, baseDN string) *MembershipManager {
	return &MembershipManager{
		client:  client,
		users:   NewUserResolver(client, baseDN),
		baseDN:  baseDN,
		timeout: 30 * time.Second,
	}
}

// SetTimeout sets the LDAP operation timeout for all operations.
func (mm *MembershipManager) SetTimeout(timeout time.Duration) {
	mm.timeout = timeout
	mm.users.SetTimeout(timeout)
}

// AddMember adds the user named username to the group at groupDN. An
// existing membership is reported as MembershipAlreadyMember.
func (mm *MembershipManager) AddMember(ctx context.Context, groupDN, username string) (directory.MembershipOutcome, error) {
	resource := groupDN + "/" + username

	userDN, err := mm.users.ResolveDN(ctx, username)
	if err != nil {
		return 0, err
	}

	err = mm.client.Modify(ctx, &ModifyRequest{
		DN:            groupDN,
		AddAttributes: map[string][]string{"member": {userDN}},
	})
	switch {
	case err == nil:
		tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Added group member", map[string]any{
			"group_dn": groupDN,
			"user_dn":  userDN,
		})
		return directory.MembershipAdded, nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists):
		return directory.MembershipAlreadyMember, nil
	default:
		return 0, mapError("add_member", resource, err)
	}
}

// ListMembers returns one page of the sAMAccountNames of users that are
// direct members of groupDN, and the cookie for the next page.
func (mm *MembershipManager) ListMembers(ctx context.Context, groupDN string, pageSize uint32, cookie []byte) ([]string, []byte, error) {
	searchReq := &SearchRequest{
		BaseDN:     mm.baseDN,
		Scope:      ScopeWholeSubtree,
		Filter:     fmt.Sprintf("(&(objectClass=user)(!(objectClass=computer))(memberOf=%s))", ldap.EscapeFilter(groupDN)),
		Attributes: []string{"sAMAccountName"},
		TimeLimit:  mm.timeout,
		PageSize:   pageSize,
		Cookie:     cookie,
	}

	result, err := mm.client.Search(ctx, searchReq)
	if err != nil {
		return nil, nil, mapError("list_members", groupDN, err)
	}

	names := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if name := entry.GetAttributeValue("sAMAccountName"); name != "" {
			names = append(names, name)
		}
	}

	return names, result.Cookie, nil
}

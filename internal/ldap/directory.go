package ldap

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/config"
	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/pager"
)

// Directory is an Active Directory backed directory.Directory. The directory
// ID passed to each call is the DN of the group container. User listings
// search the whole base DN whatever the directory ID.
type Directory struct {
	client  Client
	groups  *GroupManager
	members *MembershipManager
	users   *UserResolver
}

var _ directory.Directory = (*Directory)(nil)

// NewDirectory wraps a connected client. Users are resolved under baseDN.
func NewDirectory(client Client, baseDN string) *Directory {
	return &Directory{
		client:  client,
		groups:  NewGroupManager(client),
		members: NewMembershipManager(client, baseDN),
		users:   NewUserResolver(client, baseDN),
	}
}

// Open connects using the [ldap] configuration block.
func Open(ctx context.Context, cfg config.LDAPConfig) (*Directory, error) {
	connCfg := NewConnectionConfig(cfg)

	client, err := NewClient(ctx, connCfg)
	if err != nil {
		return nil, err
	}

	dir := NewDirectory(client, connCfg.BaseDN)
	dir.SetTimeout(connCfg.Timeout)
	return dir, nil
}

// SetTimeout sets the per-request LDAP time limit.
func (d *Directory) SetTimeout(timeout time.Duration) {
	d.groups.SetTimeout(timeout)
	d.members.SetTimeout(timeout)
	d.users.SetTimeout(timeout)
}

// Close closes the underlying connection.
func (d *Directory) Close() error {
	return d.client.Close()
}

func (d *Directory) GetGroup(ctx context.Context, directoryID, name string) directory.Lookup {
	if directoryID == "" {
		return directory.Failed(invalid("get_group", name, fmt.Errorf("group container cannot be empty")))
	}

	group, err := d.groups.GetGroupByName(ctx, directoryID, name)
	if err != nil {
		return directory.LookupFromError(err)
	}
	return directory.Found(groupRecord(group))
}

// CreateGroup stores RoleReference in the info attribute. Precedence has no
// Active Directory equivalent and is not written.
func (d *Directory) CreateGroup(ctx context.Context, in directory.CreateGroupInput) (directory.GroupRecord, error) {
	if in.DirectoryID == "" {
		return directory.GroupRecord{}, invalid("create_group", in.Name, fmt.Errorf("group container cannot be empty"))
	}

	req := &CreateGroupRequest{
		Name:      in.Name,
		Container: in.DirectoryID,
		Scope:     GroupScopeGlobal,
		Category:  GroupCategorySecurity,
	}
	if in.Description != nil {
		req.Description = *in.Description
	}
	if in.RoleReference != nil {
		req.Info = *in.RoleReference
	}

	if in.Precedence != nil {
		tflog.SubsystemWarn(ctx, logging.SubsystemLDAP, "Ignoring group precedence", map[string]any{
			"group_name": in.Name,
			"precedence": *in.Precedence,
		})
	}

	group, err := d.groups.CreateGroup(ctx, req)
	if err != nil {
		return directory.GroupRecord{}, err
	}
	return groupRecord(group), nil
}

func (d *Directory) ListGroups(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[directory.GroupRecord], error) {
	cookie, err := decodeCursor("list_groups", cursor)
	if err != nil {
		return pager.Page[directory.GroupRecord]{}, err
	}

	groups, next, err := d.groups.ListGroups(ctx, directoryID, searchPageSize(pageSize), cookie)
	if err != nil {
		return pager.Page[directory.GroupRecord]{}, err
	}

	page := pager.Page[directory.GroupRecord]{
		Items:      make([]directory.GroupRecord, 0, len(groups)),
		NextCursor: encodeCursor(next),
	}
	for _, g := range groups {
		page.Items = append(page.Items, groupRecord(g))
	}

	tflog.SubsystemTrace(ctx, logging.SubsystemLDAP, "Listed groups page", map[string]any{
		"container": directoryID,
		"count":     len(page.Items),
		"more":      page.NextCursor != "",
	})

	return page, nil
}

func (d *Directory) ListUsersInGroup(ctx context.Context, directoryID, groupName string, pageSize int32, cursor string) (pager.Page[string], error) {
	cookie, err := decodeCursor("list_users_in_group", cursor)
	if err != nil {
		return pager.Page[string]{}, err
	}

	dn, err := groupDN(groupName, directoryID)
	if err != nil {
		return pager.Page[string]{}, invalid("list_users_in_group", groupName, err)
	}

	names, next, err := d.members.ListMembers(ctx, dn, searchPageSize(pageSize), cookie)
	if err != nil {
		return pager.Page[string]{}, err
	}

	return pager.Page[string]{Items: names, NextCursor: encodeCursor(next)}, nil
}

// AddUserToGroup reports MembershipAlreadyMember when the server rejects a
// duplicate member value.
func (d *Directory) AddUserToGroup(ctx context.Context, directoryID, groupName, username string) (directory.MembershipOutcome, error) {
	dn, err := groupDN(groupName, directoryID)
	if err != nil {
		return 0, invalid("add_user_to_group", groupName+"/"+username, err)
	}
	return d.members.AddMember(ctx, dn, username)
}

func (d *Directory) UserAttributes(context.Context, string) ([]string, error) {
	return slices.Clone(UserAttributes), nil
}

func (d *Directory) ListUsers(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[directory.UserRecord], error) {
	cookie, err := decodeCursor("list_users", cursor)
	if err != nil {
		return pager.Page[directory.UserRecord]{}, err
	}

	entries, next, err := d.users.ListUsers(ctx, searchPageSize(pageSize), cookie)
	if err != nil {
		return pager.Page[directory.UserRecord]{}, err
	}

	page := pager.Page[directory.UserRecord]{
		Items:      make([]directory.UserRecord, 0, len(entries)),
		NextCursor: encodeCursor(next),
	}
	for _, entry := range entries {
		attrs := make(map[string]string, len(UserAttributes))
		for _, name := range UserAttributes {
			if value := entry.GetAttributeValue(name); value != "" {
				attrs[strings.ToLower(name)] = value
			}
		}
		page.Items = append(page.Items, directory.UserRecord{
			Username:   entry.GetAttributeValue(UserAttributes[0]),
			Attributes: attrs,
		})
	}

	tflog.SubsystemTrace(ctx, logging.SubsystemLDAP, "Listed users page", map[string]any{
		"container": directoryID,
		"count":     len(page.Items),
		"more":      page.NextCursor != "",
	})

	return page, nil
}

func groupRecord(g *Group) directory.GroupRecord {
	return directory.GroupRecord{
		Name:          g.Name,
		Description:   g.Description,
		RoleReference: g.Info,
	}
}

func searchPageSize(pageSize int32) uint32 {
	if pageSize <= 0 {
		return uint32(pager.MaxPageSize)
	}
	return uint32(pageSize)
}

func encodeCursor(cookie []byte) string {
	if len(cookie) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(cookie)
}

func decodeCursor(operation, cursor string) ([]byte, error) {
	if cursor == "" {
		return nil, nil
	}
	cookie, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, invalid(operation, cursor, fmt.Errorf("invalid cursor: %w", err))
	}
	return cookie, nil
}

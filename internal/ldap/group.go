package ldap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/logging"
)

// GroupScope represents the scope of an Active Directory group.
type GroupScope string

const (
	GroupScopeGlobal      GroupScope = "Global"      // Global groups can contain members from the same domain
	GroupScopeUniversal   GroupScope = "Universal"   // Universal groups can contain members from any domain in the forest
	GroupScopeDomainLocal GroupScope = "DomainLocal" // Domain Local groups can contain members from any domain
)

// String returns the string representation of the group scope.
func (gs GroupScope) String() string {
	return string(gs)
}

// GroupCategory represents the category of an Active Directory group.
type GroupCategory string

const (
	GroupCategorySecurity     GroupCategory = "Security"     // Security group for access control
	GroupCategoryDistribution GroupCategory = "Distribution" // Distribution group for email distribution lists
)

// String returns the string representation of the group category.
func (gc GroupCategory) String() string {
	return string(gc)
}

// Active Directory group type bit flags.
const (
	// Group scope flags (mutually exclusive).
	GroupTypeFlagGlobal      int32 = 0x00000002 // ADS_GROUP_TYPE_GLOBAL_GROUP
	GroupTypeFlagDomainLocal int32 = 0x00000004 // ADS_GROUP_TYPE_DOMAIN_LOCAL_GROUP
	GroupTypeFlagUniversal   int32 = 0x00000008 // ADS_GROUP_TYPE_UNIVERSAL_GROUP

	// Group category flag.
	GroupTypeFlagSecurity int32 = -2147483648 // ADS_GROUP_TYPE_SECURITY_ENABLED (0x80000000 as signed int32)
)

// groupAttributes are read for every group entry.
var groupAttributes = []string{"cn", "sAMAccountName", "description", "info", "groupType"}

// invalidSAMChars may not appear in a sAMAccountName.
const invalidSAMChars = " \t\n\r@\"#$%&'()*+,/:;<=>?[\\]^`{|}~"

// Group represents an Active Directory group.
type Group struct {
	DistinguishedName string
	Name              string // cn
	SAMAccountName    string
	Description       string
	Info              string // Carries the role reference
	Scope             GroupScope
	Category          GroupCategory
	GroupType         int32
	Container         string // Parent container DN
}

// CreateGroupRequest represents a request to create a new group.
type CreateGroupRequest struct {
	Name        string        // Required: group name, used for cn
	Container   string        // Required: parent container DN
	Description string        // Optional
	Info        string        // Optional
	Scope       GroupScope    // Defaults to Global
	Category    GroupCategory // Defaults to Security
}

// GroupManager handles group lookup, listing and creation in one container.
type GroupManager struct {
	client  Client
	timeout time.Duration
}

// NewGroupManager creates a new group manager instance.
func NewGroupManager(client Client) *GroupManager {
	return &GroupManager{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// SetTimeout sets the LDAP operation timeout.
func (gm *GroupManager) SetTimeout(timeout time.Duration) {
	gm.timeout = timeout
}

// CalculateGroupType calculates the Active Directory groupType value from scope and category.
func CalculateGroupType(scope GroupScope, category GroupCategory) int32 {
	var groupType int32

	switch scope {
	case GroupScopeDomainLocal:
		groupType |= GroupTypeFlagDomainLocal
	case GroupScopeUniversal:
		groupType |= GroupTypeFlagUniversal
	default:
		groupType |= GroupTypeFlagGlobal
	}

	// Distribution groups don't have the security flag set
	if category == GroupCategorySecurity {
		groupType |= GroupTypeFlagSecurity
	}

	return groupType
}

// ParseGroupType extracts scope and category from an Active Directory groupType value.
func ParseGroupType(groupType int32) (GroupScope, GroupCategory) {
	var scope GroupScope
	switch {
	case groupType&GroupTypeFlagGlobal != 0:
		scope = GroupScopeGlobal
	case groupType&GroupTypeFlagDomainLocal != 0:
		scope = GroupScopeDomainLocal
	case groupType&GroupTypeFlagUniversal != 0:
		scope = GroupScopeUniversal
	default:
		scope = GroupScopeGlobal
	}

	category := GroupCategoryDistribution
	if groupType&GroupTypeFlagSecurity != 0 {
		category = GroupCategorySecurity
	}

	return scope, category
}

// SAMAccountNameFor derives a pre-Windows 2000 name from a group name by
// replacing characters AD rejects.
func SAMAccountNameFor(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSAMChars, r) {
			return '_'
		}
		return r
	}, name)
}

// GetGroupByName finds the group whose cn is exactly name directly below
// container. Directory matching on cn is case-insensitive, so candidates are
// filtered again here.
func (gm *GroupManager) GetGroupByName(ctx context.Context, container, name string) (*Group, error) {
	if name == "" {
		return nil, invalid("get_group", name, fmt.Errorf("group name cannot be empty"))
	}

	searchReq := &SearchRequest{
		BaseDN:     container,
		Scope:      ScopeSingleLevel,
		Filter:     fmt.Sprintf("(&(objectClass=group)(cn=%s))", ldap.EscapeFilter(name)),
		Attributes: groupAttributes,
		TimeLimit:  gm.timeout,
	}

	result, err := gm.client.Search(ctx, searchReq)
	if err != nil {
		return nil, mapError("get_group", name, err)
	}

	for _, entry := range result.Entries {
		if entry.GetAttributeValue("cn") == name {
			return entryToGroup(entry), nil
		}
	}

	return nil, notFound("get_group", name, "group %q not found in %s", name, container)
}

// ListGroups returns one page of the groups directly below container and the
// cookie for the next page.
func (gm *GroupManager) ListGroups(ctx context.Context, container string, pageSize uint32, cookie []byte) ([]*Group, []byte, error) {
	searchReq := &SearchRequest{
		BaseDN:     container,
		Scope:      ScopeSingleLevel,
		Filter:     "(objectClass=group)",
		Attributes: groupAttributes,
		TimeLimit:  gm.timeout,
		PageSize:   pageSize,
		Cookie:     cookie,
	}

	result, err := gm.client.Search(ctx, searchReq)
	if err != nil {
		return nil, nil, mapError("list_groups", container, err)
	}

	groups := make([]*Group, 0, len(result.Entries))
	for _, entry := range result.Entries {
		groups = append(groups, entryToGroup(entry))
	}

	return groups, result.Cookie, nil
}

// CreateGroup adds a new group entry and returns it as written.
func (gm *GroupManager) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	if req == nil {
		return nil, fmt.Errorf("create group request cannot be nil")
	}

	dn, err := groupDN(req.Name, req.Container)
	if err != nil {
		return nil, invalid("create_group", req.Name, err)
	}

	scope := req.Scope
	if scope == "" {
		scope = GroupScopeGlobal
	}
	category := req.Category
	if category == "" {
		category = GroupCategorySecurity
	}
	groupType := CalculateGroupType(scope, category)

	group := &Group{
		DistinguishedName: dn,
		Name:              req.Name,
		SAMAccountName:    SAMAccountNameFor(req.Name),
		Description:       req.Description,
		Info:              req.Info,
		Scope:             scope,
		Category:          category,
		GroupType:         groupType,
		Container:         req.Container,
	}

	attributes := map[string][]string{
		"objectClass":    {"top", "group"},
		"cn":             {group.Name},
		"sAMAccountName": {group.SAMAccountName},
		"groupType":      {strconv.FormatInt(int64(groupType), 10)},
	}
	if group.Description != "" {
		attributes["description"] = []string{group.Description}
	}
	if group.Info != "" {
		attributes["info"] = []string{group.Info}
	}

	err = logging.LogOperation(ctx, logging.SubsystemLDAP, "create_group", map[string]any{
		"dn":               dn,
		"sam_account_name": group.SAMAccountName,
		"group_type":       groupType,
	}, func() error {
		return gm.client.Add(ctx, &AddRequest{DN: dn, Attributes: attributes})
	})
	if err != nil {
		return nil, mapError("create_group", req.Name, err)
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemLDAP, "Created group", map[string]any{
		"dn": dn,
	})

	return group, nil
}

func entryToGroup(entry *ldap.Entry) *Group {
	group := &Group{
		DistinguishedName: entry.DN,
		Name:              entry.GetAttributeValue("cn"),
		SAMAccountName:    entry.GetAttributeValue("sAMAccountName"),
		Description:       entry.GetAttributeValue("description"),
		Info:              entry.GetAttributeValue("info"),
	}

	if raw := entry.GetAttributeValue("groupType"); raw != "" {
		if groupType, err := strconv.ParseInt(raw, 10, 32); err == nil {
			group.GroupType = int32(groupType)
			group.Scope, group.Category = ParseGroupType(group.GroupType)
		}
	}

	if parsed, err := ldap.ParseDN(entry.DN); err == nil && len(parsed.RDNs) > 1 {
		group.Container = (&ldap.DN{RDNs: parsed.RDNs[1:]}).String()
	}

	return group
}

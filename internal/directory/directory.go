package directory

import (
	"context"
	"strings"

	"github.com/isometry/groupsync/internal/pager"
)

// Directory is a remote identity directory holding groups and memberships.
type Directory interface {
	// ListGroups returns one page of groups.
	ListGroups(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[GroupRecord], error)

	// GetGroup looks up a group by exact name.
	GetGroup(ctx context.Context, directoryID, name string) Lookup

	// CreateGroup creates a group.
	CreateGroup(ctx context.Context, in CreateGroupInput) (GroupRecord, error)

	// ListUsersInGroup returns one page of member usernames.
	ListUsersInGroup(ctx context.Context, directoryID, groupName string, pageSize int32, cursor string) (pager.Page[string], error)

	// AddUserToGroup ensures username is a member of groupName. It succeeds
	// when the user is already a member.
	AddUserToGroup(ctx context.Context, directoryID, groupName, username string) (MembershipOutcome, error)

	// UserAttributes returns the column names of a user export, in order.
	UserAttributes(ctx context.Context, directoryID string) ([]string, error)

	// ListUsers returns one page of user accounts.
	ListUsers(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[UserRecord], error)
}

// GroupRecord is the directory's view of a group.
type GroupRecord struct {
	Name          string
	Description   string
	RoleReference string
	Precedence    *int32
}

// UserRecord is the directory's view of a user account. Attributes is keyed
// by lower-cased attribute name and includes the username column reported
// by UserAttributes.
type UserRecord struct {
	Username   string
	Attributes map[string]string
}

// Value returns the value of the named column, or "" when the user has none.
func (u UserRecord) Value(column string) string {
	return u.Attributes[strings.ToLower(column)]
}

// MembershipOutcome describes the effect of AddUserToGroup.
type MembershipOutcome int

const (
	// MembershipAdded means the directive succeeded. Backends that cannot
	// observe prior membership always report this.
	MembershipAdded MembershipOutcome = iota + 1
	// MembershipAlreadyMember means the user was already in the group.
	MembershipAlreadyMember
)

// String returns the report label for the outcome.
func (o MembershipOutcome) String() string {
	switch o {
	case MembershipAdded:
		return "added"
	case MembershipAlreadyMember:
		return "already-member"
	default:
		return "unknown"
	}
}

// GroupLister returns a FetchFunc over the groups of directoryID.
func GroupLister(dir Directory, directoryID string) pager.FetchFunc[GroupRecord] {
	return func(ctx context.Context, pageSize int32, cursor string) (pager.Page[GroupRecord], error) {
		return dir.ListGroups(ctx, directoryID, pageSize, cursor)
	}
}

// MemberLister returns a FetchFunc over the member usernames of groupName.
func MemberLister(dir Directory, directoryID, groupName string) pager.FetchFunc[string] {
	return func(ctx context.Context, pageSize int32, cursor string) (pager.Page[string], error) {
		return dir.ListUsersInGroup(ctx, directoryID, groupName, pageSize, cursor)
	}
}

// UserLister returns a FetchFunc over the user accounts of directoryID.
func UserLister(dir Directory, directoryID string) pager.FetchFunc[UserRecord] {
	return func(ctx context.Context, pageSize int32, cursor string) (pager.Page[UserRecord], error) {
		return dir.ListUsers(ctx, directoryID, pageSize, cursor)
	}
}

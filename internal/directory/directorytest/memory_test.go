package directorytest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/pager"
)

func TestMemory_ListGroupsPagesWithCursor(t *testing.T) {
	mem := NewMemory()
	for i := range 5 {
		mem.AddGroup("pool1", directory.GroupRecord{Name: fmt.Sprintf("g%d", i)})
	}

	lister, err := pager.New(directory.GroupLister(mem, "pool1"), 2)
	require.NoError(t, err)

	groups, err := lister.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, groups, 5)
	assert.Equal(t, "g4", groups[4].Name)

	calls := mem.CallsTo(OpListGroups)
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"", "2", "4"}, []string{calls[0].Cursor, calls[1].Cursor, calls[2].Cursor})
}

func TestMemory_GetGroupIsCaseSensitive(t *testing.T) {
	mem := NewMemory()
	mem.AddGroup("pool1", directory.GroupRecord{Name: "Admins"})

	assert.Equal(t, directory.LookupFound, mem.GetGroup(t.Context(), "pool1", "Admins").Status)
	assert.Equal(t, directory.LookupNotFound, mem.GetGroup(t.Context(), "pool1", "admins").Status)
	assert.Equal(t, directory.LookupNotFound, mem.GetGroup(t.Context(), "pool2", "Admins").Status)
}

func TestMemory_AddUserToGroupIsIdempotent(t *testing.T) {
	mem := NewMemory()
	mem.AddGroup("pool1", directory.GroupRecord{Name: "admins"}, "alice")

	outcome, err := mem.AddUserToGroup(t.Context(), "pool1", "admins", "alice")
	require.NoError(t, err)
	assert.Equal(t, directory.MembershipAlreadyMember, outcome)

	outcome, err = mem.AddUserToGroup(t.Context(), "pool1", "admins", "bob")
	require.NoError(t, err)
	assert.Equal(t, directory.MembershipAdded, outcome)

	assert.Equal(t, []string{"alice", "bob"}, mem.Members("pool1", "admins"))

	_, err = mem.AddUserToGroup(t.Context(), "pool1", "missing", "bob")
	assert.True(t, directory.IsNotFound(err))
}

func TestMemory_Faults(t *testing.T) {
	mem := NewMemory()
	denied := directory.NewError("get_group", directory.ErrorCategoryPermission, "", "admins", errors.New("denied"))
	mem.Fail(OpGetGroup, "admins", denied)
	mem.Fail(OpCreateGroup, "viewers", errors.New("quota"))

	lookup := mem.GetGroup(t.Context(), "pool1", "admins")
	assert.Equal(t, directory.LookupFailed, lookup.Status)
	assert.ErrorIs(t, lookup.Err, denied)

	_, err := mem.CreateGroup(t.Context(), directory.NewCreateGroupInput("pool1", "viewers"))
	assert.Error(t, err)
	assert.Empty(t, mem.Groups("pool1"))

	assert.Len(t, mem.MutatingCalls(), 1)
}

func TestMemory_CreateGroupConflict(t *testing.T) {
	mem := NewMemory()
	_, err := mem.CreateGroup(t.Context(), directory.NewCreateGroupInput("pool1", "g"))
	require.NoError(t, err)

	_, err = mem.CreateGroup(t.Context(), directory.NewCreateGroupInput("pool1", "g"))
	assert.True(t, directory.IsConflict(err))
}

func TestMemory_ListUsers(t *testing.T) {
	mem := NewMemory()
	for i := range 3 {
		mem.AddUser("pool1", directory.UserRecord{
			Username:   fmt.Sprintf("user%d", i),
			Attributes: map[string]string{"Email": fmt.Sprintf("user%d@example.com", i)},
		})
	}

	columns, err := mem.UserAttributes(t.Context(), "pool1")
	require.NoError(t, err)
	assert.Equal(t, []string{UsernameColumn}, columns)

	lister, err := pager.New(directory.UserLister(mem, "pool1"), 2)
	require.NoError(t, err)

	users, err := lister.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "user2", users[2].Value(UsernameColumn))
	assert.Equal(t, "user2@example.com", users[2].Value("EMAIL"))
	assert.Empty(t, users[2].Value("phone_number"))
	assert.Len(t, mem.CallsTo(OpListUsers), 2)

	mem.SetUserAttributes("pool1", "email", UsernameColumn)
	columns, err = mem.UserAttributes(t.Context(), "pool1")
	require.NoError(t, err)
	assert.Equal(t, []string{"email", UsernameColumn}, columns)

	boom := errors.New("throttled")
	mem.Fail(OpListUsers, "", boom)
	_, err = lister.Collect(t.Context())
	assert.ErrorIs(t, err, boom)
}

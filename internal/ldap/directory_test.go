package ldap

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/pager"
)

func ptr[T any](v T) *T {
	return &v
}

func createTestDirectory() (*Directory, *MockClient) {
	mockClient := &MockClient{}
	return NewDirectory(mockClient, testBaseDN), mockClient
}

func TestDirectory_GetGroup(t *testing.T) {
	tests := []struct {
		name     string
		result   *SearchResult
		err      error
		expected directory.LookupStatus
	}{
		{
			name:     "found",
			result:   &SearchResult{Entries: []*ldap.Entry{createMockGroupEntry("admins", "Admins", "role-a")}},
			expected: directory.LookupFound,
		},
		{
			name:     "not found",
			result:   &SearchResult{},
			expected: directory.LookupNotFound,
		},
		{
			name:     "container missing",
			err:      ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object")),
			expected: directory.LookupNotFound,
		},
		{
			name:     "server down",
			err:      ldap.NewError(ldap.LDAPResultServerDown, errors.New("down")),
			expected: directory.LookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, mockClient := createTestDirectory()
			ctx := context.Background()

			mockClient.On("Search", ctx, mock.Anything).Return(tt.result, tt.err)

			lookup := dir.GetGroup(ctx, testContainer, "admins")
			assert.Equal(t, tt.expected, lookup.Status)
			if tt.expected == directory.LookupFound {
				assert.Equal(t, directory.GroupRecord{
					Name:          "admins",
					Description:   "Admins",
					RoleReference: "role-a",
				}, lookup.Group)
			}
			if tt.expected == directory.LookupFailed {
				assert.Equal(t, directory.ErrorCategoryConnection, directory.Category(lookup.Err))
			}
		})
	}
}

func TestDirectory_GetGroup_EmptyContainer(t *testing.T) {
	dir, mockClient := createTestDirectory()

	lookup := dir.GetGroup(context.Background(), "", "admins")
	assert.Equal(t, directory.LookupFailed, lookup.Status)
	mockClient.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestDirectory_CreateGroup(t *testing.T) {
	dir, mockClient := createTestDirectory()
	ctx := context.Background()

	mockClient.On("Add", ctx, mock.MatchedBy(func(req *AddRequest) bool {
		_, hasPrecedence := req.Attributes["precedence"]
		return req.DN == "CN=admins,"+testContainer &&
			req.Attributes["description"][0] == "Admins" &&
			req.Attributes["info"][0] == "role-a" &&
			!hasPrecedence
	})).Return(nil)

	in := directory.NewCreateGroupInput(testContainer, "admins").
		WithDescription(ptr("Admins")).
		WithRoleReference("role-a").
		WithPrecedence(ptr[int32](3))

	record, err := dir.CreateGroup(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, directory.GroupRecord{Name: "admins", Description: "Admins", RoleReference: "role-a"}, record)
	mockClient.AssertExpectations(t)
}

func TestDirectory_ListGroups_Paging(t *testing.T) {
	dir, mockClient := createTestDirectory()
	ctx := context.Background()

	mockClient.On("Search", ctx, mock.MatchedBy(func(req *SearchRequest) bool {
		return len(req.Cookie) == 0
	})).Return(&SearchResult{
		Entries: []*ldap.Entry{createMockGroupEntry("admins", "", ""), createMockGroupEntry("viewers", "", "")},
		Cookie:  []byte{0x00, 0xff, 0x10},
	}, nil).Once()
	mockClient.On("Search", ctx, mock.MatchedBy(func(req *SearchRequest) bool {
		return assert.ObjectsAreEqual([]byte{0x00, 0xff, 0x10}, req.Cookie)
	})).Return(&SearchResult{
		Entries: []*ldap.Entry{createMockGroupEntry("ops", "", "")},
	}, nil).Once()

	lister, err := pager.New(directory.GroupLister(dir, testContainer), 2)
	require.NoError(t, err)

	groups, err := lister.Collect(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"admins", "viewers", "ops"}, names)
	mockClient.AssertExpectations(t)
}

func TestDirectory_ListGroups_InvalidCursor(t *testing.T) {
	dir, mockClient := createTestDirectory()

	_, err := dir.ListGroups(context.Background(), testContainer, 60, "%%%")
	assert.Equal(t, directory.ErrorCategoryValidation, directory.Category(err))
	mockClient.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestDirectory_ListUsersInGroup(t *testing.T) {
	dir, mockClient := createTestDirectory()
	ctx := context.Background()

	mockClient.On("Search", ctx, mock.MatchedBy(func(req *SearchRequest) bool {
		return req.Filter == "(&(objectClass=user)(!(objectClass=computer))(memberOf=CN=admins,"+testContainer+"))" &&
			string(req.Cookie) == "abc" &&
			req.PageSize == 60
	})).Return(&SearchResult{
		Entries: []*ldap.Entry{createMockUserEntry("alice")},
	}, nil)

	page, err := dir.ListUsersInGroup(ctx, testContainer, "admins", 0, base64.StdEncoding.EncodeToString([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, page.Items)
	assert.Empty(t, page.NextCursor)
	mockClient.AssertExpectations(t)
}

func TestDirectory_ListUsers(t *testing.T) {
	dir, mockClient := createTestDirectory()
	ctx := context.Background()

	alice := ldap.NewEntry("CN=Alice,OU=Users,"+testBaseDN, map[string][]string{
		"sAMAccountName": {"alice"},
		"mail":           {"alice@test.local"},
		"displayName":    {"Alice Example"},
	})

	mockClient.On("Search", ctx, mock.MatchedBy(func(req *SearchRequest) bool {
		return req.BaseDN == testBaseDN &&
			req.Filter == "(&(objectClass=user)(!(objectClass=computer)))" &&
			len(req.Cookie) == 0 &&
			req.PageSize == 25
	})).Return(&SearchResult{
		Entries: []*ldap.Entry{alice, createMockUserEntry("bob")},
		Cookie:  []byte("more"),
	}, nil)

	page, err := dir.ListUsers(ctx, testContainer, 25, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("more")), page.NextCursor)

	assert.Equal(t, "alice", page.Items[0].Username)
	assert.Equal(t, "alice@test.local", page.Items[0].Value("mail"))
	assert.Equal(t, "Alice Example", page.Items[0].Value("displayName"))
	assert.Equal(t, "bob", page.Items[1].Value("sAMAccountName"))
	assert.Empty(t, page.Items[1].Value("mail"))

	columns, err := dir.UserAttributes(ctx, testContainer)
	require.NoError(t, err)
	assert.Equal(t, UserAttributes, columns)
	mockClient.AssertExpectations(t)
}

func TestDirectory_AddUserToGroup(t *testing.T) {
	dir, mockClient := createTestDirectory()
	ctx := context.Background()

	mockClient.On("Search", ctx, isUserSearch("bob")).
		Return(&SearchResult{Entries: []*ldap.Entry{createMockUserEntry("bob")}}, nil)
	mockClient.On("Modify", ctx, mock.MatchedBy(func(req *ModifyRequest) bool {
		return req.DN == "CN=viewers,"+testContainer
	})).Return(ldap.NewError(ldap.LDAPResultAttributeOrValueExists, errors.New("exists")))

	outcome, err := dir.AddUserToGroup(ctx, testContainer, "viewers", "bob")
	require.NoError(t, err)
	assert.Equal(t, directory.MembershipAlreadyMember, outcome)
	mockClient.AssertExpectations(t)
}

func TestDirectory_Close(t *testing.T) {
	dir, mockClient := createTestDirectory()
	mockClient.On("Close").Return(nil)

	require.NoError(t, dir.Close())
	mockClient.AssertExpectations(t)
}

func TestCursorRoundTrip(t *testing.T) {
	assert.Empty(t, encodeCursor(nil))

	cookie, err := decodeCursor("list_groups", "")
	require.NoError(t, err)
	assert.Nil(t, cookie)

	cookie, err = decodeCursor("list_groups", encodeCursor([]byte("cookie")))
	require.NoError(t, err)
	assert.Equal(t, []byte("cookie"), cookie)
}

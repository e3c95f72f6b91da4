package ldap

import (
	"context"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"
)

// MockClient implements the Client interface for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	args := m.Called(ctx, req)
	if result := args.Get(0); result != nil {
		return result.(*SearchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) Add(ctx context.Context, req *AddRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockClient) Modify(ctx context.Context, req *ModifyRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

const (
	testBaseDN    = "DC=test,DC=local"
	testContainer = "OU=Groups,DC=test,DC=local"
)

// createMockGroupEntry builds a group entry below testContainer.
func createMockGroupEntry(name, description, info string) *ldap.Entry {
	return ldap.NewEntry("CN="+EscapeDNValue(name)+","+testContainer, map[string][]string{
		"cn":             {name},
		"sAMAccountName": {SAMAccountNameFor(name)},
		"description":    {description},
		"info":           {info},
		"groupType":      {strconv.FormatInt(int64(CalculateGroupType(GroupScopeGlobal, GroupCategorySecurity)), 10)},
	})
}

// createMockUserEntry builds a user entry with a sAMAccountName.
func createMockUserEntry(sam string) *ldap.Entry {
	return ldap.NewEntry("CN="+sam+",OU=Users,"+testBaseDN, map[string][]string{
		"sAMAccountName": {sam},
	})
}

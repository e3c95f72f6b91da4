// Package directorytest provides an in-memory Directory for tests.
package directorytest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/pager"
)

// Op names a Directory operation.
type Op string

const (
	OpListGroups       Op = "ListGroups"
	OpGetGroup         Op = "GetGroup"
	OpCreateGroup      Op = "CreateGroup"
	OpListUsersInGroup Op = "ListUsersInGroup"
	OpAddUserToGroup   Op = "AddUserToGroup"
	OpUserAttributes   Op = "UserAttributes"
	OpListUsers        Op = "ListUsers"
)

// UsernameColumn is the export column holding the username when no columns
// were set with SetUserAttributes.
const UsernameColumn = "username"

// Mutating reports whether op changes directory state.
func (op Op) Mutating() bool {
	return op == OpCreateGroup || op == OpAddUserToGroup
}

// Call records one Directory invocation.
type Call struct {
	Op          Op
	DirectoryID string
	Group       string
	Username    string
	Cursor      string
	PageSize    int32
	Input       *directory.CreateGroupInput
}

type group struct {
	record  directory.GroupRecord
	members []string
}

type pool struct {
	order   []string
	groups  map[string]*group
	columns []string
	users   []directory.UserRecord
}

type faultKey struct {
	op     Op
	target string
}

// Memory is an in-memory Directory. Group names are case-sensitive.
// AddUserToGroup reports MembershipAlreadyMember for existing members.
type Memory struct {
	mu     sync.Mutex
	pools  map[string]*pool
	faults map[faultKey]error
	calls  []Call
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{
		pools:  make(map[string]*pool),
		faults: make(map[faultKey]error),
	}
}

var _ directory.Directory = (*Memory)(nil)

// AddGroup seeds a group with members.
func (m *Memory) AddGroup(directoryID string, record directory.GroupRecord, members ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.pool(directoryID)
	if _, exists := p.groups[record.Name]; !exists {
		p.order = append(p.order, record.Name)
	}
	p.groups[record.Name] = &group{record: record, members: slices.Clone(members)}
}

// AddUser seeds a user account. Attribute names are lower-cased and the
// username is stored under UsernameColumn unless already present.
func (m *Memory) AddUser(directoryID string, user directory.UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := make(map[string]string, len(user.Attributes)+1)
	for name, value := range user.Attributes {
		attrs[strings.ToLower(name)] = value
	}
	if _, ok := attrs[UsernameColumn]; !ok {
		attrs[UsernameColumn] = user.Username
	}

	p := m.pool(directoryID)
	p.users = append(p.users, directory.UserRecord{Username: user.Username, Attributes: attrs})
}

// SetUserAttributes sets the export columns of directoryID.
func (m *Memory) SetUserAttributes(directoryID string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool(directoryID).columns = slices.Clone(columns)
}

// Fail makes op fail with err whenever it targets target. The target is the
// group name, "group/username" for AddUserToGroup, or "" for ListGroups,
// UserAttributes and ListUsers.
func (m *Memory) Fail(op Op, target string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[faultKey{op: op, target: target}] = err
}

// Calls returns every recorded call in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallsTo returns the recorded calls of op.
func (m *Memory) CallsTo(op Op) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// MutatingCalls returns the recorded CreateGroup and AddUserToGroup calls.
func (m *Memory) MutatingCalls() []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op.Mutating() {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Groups returns the group names of directoryID in creation order.
func (m *Memory) Groups(directoryID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pool(directoryID).order)
}

// Group returns a group record.
func (m *Memory) Group(directoryID, name string) (directory.GroupRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.pool(directoryID).groups[name]
	if !ok {
		return directory.GroupRecord{}, false
	}
	return g.record, true
}

// Members returns the members of a group in insertion order.
func (m *Memory) Members(directoryID, name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.pool(directoryID).groups[name]
	if !ok {
		return nil
	}
	return slices.Clone(g.members)
}

func (m *Memory) ListGroups(_ context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[directory.GroupRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(Call{Op: OpListGroups, DirectoryID: directoryID, PageSize: pageSize, Cursor: cursor})
	if err := m.fault(OpListGroups, ""); err != nil {
		return pager.Page[directory.GroupRecord]{}, err
	}

	p := m.pool(directoryID)
	names, next, err := window(p.order, pageSize, cursor)
	if err != nil {
		return pager.Page[directory.GroupRecord]{}, err
	}

	page := pager.Page[directory.GroupRecord]{NextCursor: next}
	for _, name := range names {
		page.Items = append(page.Items, p.groups[name].record)
	}
	return page, nil
}

func (m *Memory) GetGroup(_ context.Context, directoryID, name string) directory.Lookup {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(Call{Op: OpGetGroup, DirectoryID: directoryID, Group: name})
	if err := m.fault(OpGetGroup, name); err != nil {
		return directory.LookupFromError(err)
	}

	g, ok := m.pool(directoryID).groups[name]
	if !ok {
		return directory.NotFound()
	}
	return directory.Found(g.record)
}

func (m *Memory) CreateGroup(_ context.Context, in directory.CreateGroupInput) (directory.GroupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	input := in
	m.record(Call{Op: OpCreateGroup, DirectoryID: in.DirectoryID, Group: in.Name, Input: &input})
	if err := m.fault(OpCreateGroup, in.Name); err != nil {
		return directory.GroupRecord{}, err
	}

	p := m.pool(in.DirectoryID)
	if _, exists := p.groups[in.Name]; exists {
		return directory.GroupRecord{}, directory.NewError("create_group", directory.ErrorCategoryConflict,
			"GroupExists", in.Name, errors.New("group already exists"))
	}

	record := directory.GroupRecord{Name: in.Name, Precedence: in.Precedence}
	if in.Description != nil {
		record.Description = *in.Description
	}
	if in.RoleReference != nil {
		record.RoleReference = *in.RoleReference
	}

	p.order = append(p.order, in.Name)
	p.groups[in.Name] = &group{record: record}
	return record, nil
}

func (m *Memory) ListUsersInGroup(_ context.Context, directoryID, groupName string, pageSize int32, cursor string) (pager.Page[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(Call{Op: OpListUsersInGroup, DirectoryID: directoryID, Group: groupName, PageSize: pageSize, Cursor: cursor})
	if err := m.fault(OpListUsersInGroup, groupName); err != nil {
		return pager.Page[string]{}, err
	}

	g, ok := m.pool(directoryID).groups[groupName]
	if !ok {
		return pager.Page[string]{}, notFound("list_users_in_group", groupName)
	}

	members, next, err := window(g.members, pageSize, cursor)
	if err != nil {
		return pager.Page[string]{}, err
	}
	return pager.Page[string]{Items: members, NextCursor: next}, nil
}

func (m *Memory) AddUserToGroup(_ context.Context, directoryID, groupName, username string) (directory.MembershipOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(Call{Op: OpAddUserToGroup, DirectoryID: directoryID, Group: groupName, Username: username})
	if err := m.fault(OpAddUserToGroup, groupName+"/"+username); err != nil {
		return 0, err
	}

	g, ok := m.pool(directoryID).groups[groupName]
	if !ok {
		return 0, notFound("add_user_to_group", groupName)
	}

	if slices.Contains(g.members, username) {
		return directory.MembershipAlreadyMember, nil
	}
	g.members = append(g.members, username)
	return directory.MembershipAdded, nil
}

func (m *Memory) UserAttributes(_ context.Context, directoryID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(Call{Op: OpUserAttributes, DirectoryID: directoryID})
	if err := m.fault(OpUserAttributes, ""); err != nil {
		return nil, err
	}

	if columns := m.pool(directoryID).columns; len(columns) > 0 {
		return slices.Clone(columns), nil
	}
	return []string{UsernameColumn}, nil
}

func (m *Memory) ListUsers(_ context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[directory.UserRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(Call{Op: OpListUsers, DirectoryID: directoryID, PageSize: pageSize, Cursor: cursor})
	if err := m.fault(OpListUsers, ""); err != nil {
		return pager.Page[directory.UserRecord]{}, err
	}

	users, next, err := window(m.pool(directoryID).users, pageSize, cursor)
	if err != nil {
		return pager.Page[directory.UserRecord]{}, err
	}
	return pager.Page[directory.UserRecord]{Items: users, NextCursor: next}, nil
}

func (m *Memory) pool(directoryID string) *pool {
	p, ok := m.pools[directoryID]
	if !ok {
		p = &pool{groups: make(map[string]*group)}
		m.pools[directoryID] = p
	}
	return p
}

func (m *Memory) record(c Call) {
	m.calls = append(m.calls, c)
}

func (m *Memory) fault(op Op, target string) error {
	return m.faults[faultKey{op: op, target: target}]
}

func notFound(operation, resource string) error {
	return directory.NewError(operation, directory.ErrorCategoryNotFound, "ResourceNotFound", resource,
		errors.New("no such group"))
}

// window slices items into a page. The cursor is the offset of the page.
func window[T any](items []T, pageSize int32, cursor string) ([]T, string, error) {
	start := 0
	if cursor != "" {
		offset, err := strconv.Atoi(cursor)
		if err != nil || offset < 0 || offset > len(items) {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		start = offset
	}

	size := int(pageSize)
	if size <= 0 {
		size = int(pager.MaxPageSize)
	}

	end := min(start+size, len(items))
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return slices.Clone(items[start:end]), next, nil
}

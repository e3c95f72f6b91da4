package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/directory/directorytest"
	"github.com/isometry/groupsync/internal/reconcile"
	"github.com/isometry/groupsync/internal/snapshot"
)

func ptr[T any](v T) *T { return &v }

func seeded() *directorytest.Memory {
	mem := directorytest.NewMemory()
	mem.AddGroup("pool1", directory.GroupRecord{
		Name:          "admins",
		Description:   "Administrators",
		RoleReference: "arn:aws:iam::123456789012:role/admin",
		Precedence:    ptr[int32](0),
	}, "alice")
	mem.AddGroup("pool1", directory.GroupRecord{Name: "viewers"}, "bob", "alice", "carol")
	mem.AddGroup("pool1", directory.GroupRecord{Name: "empty"})
	return mem
}

func TestExport(t *testing.T) {
	mem := seeded()

	exporter, err := New(mem, 2)
	require.NoError(t, err)

	result, err := exporter.Export(t.Context(), "pool1")
	require.NoError(t, err)
	assert.Empty(t, result.Failures)

	expected := &snapshot.Snapshot{
		DirectoryID: "pool1",
		Groups: []snapshot.GroupSpec{
			{
				Name:          "admins",
				Description:   ptr("Administrators"),
				RoleReference: "arn:aws:iam::123456789012:role/admin",
				Precedence:    ptr[int32](0),
				Members:       []snapshot.MemberRef{{Username: "alice"}},
			},
			{
				Name:    "viewers",
				Members: []snapshot.MemberRef{{Username: "bob"}, {Username: "alice"}, {Username: "carol"}},
			},
			{Name: "empty"},
		},
	}
	assert.Equal(t, expected, result.Snapshot)
}

func TestExport_FollowsCursors(t *testing.T) {
	mem := seeded()

	exporter, err := New(mem, 2)
	require.NoError(t, err)

	_, err = exporter.Export(t.Context(), "pool1")
	require.NoError(t, err)

	groupCalls := mem.CallsTo(directorytest.OpListGroups)
	require.Len(t, groupCalls, 2)
	assert.Equal(t, "", groupCalls[0].Cursor)
	assert.Equal(t, "2", groupCalls[1].Cursor)
	for _, c := range groupCalls {
		assert.Equal(t, int32(2), c.PageSize)
	}

	var viewerCursors []string
	for _, c := range mem.CallsTo(directorytest.OpListUsersInGroup) {
		if c.Group == "viewers" {
			viewerCursors = append(viewerCursors, c.Cursor)
		}
	}
	assert.Equal(t, []string{"", "2"}, viewerCursors)
	assert.Empty(t, mem.MutatingCalls())
}

func TestExport_MemberListingFailureContinues(t *testing.T) {
	mem := seeded()
	mem.Fail(directorytest.OpListUsersInGroup, "viewers", errors.New("throttled"))

	exporter, err := New(mem, 0)
	require.NoError(t, err)

	result, err := exporter.Export(t.Context(), "pool1")
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "viewers", result.Failures[0].Group)
	assert.EqualError(t, result.Failures[0].Err, "throttled")

	require.Len(t, result.Snapshot.Groups, 3)
	assert.Empty(t, result.Snapshot.Groups[1].Members)
	assert.Len(t, result.Snapshot.Groups[0].Members, 1)

	// The group after the failure is still listed.
	calls := mem.CallsTo(directorytest.OpListUsersInGroup)
	assert.Equal(t, "empty", calls[len(calls)-1].Group)
}

func TestExport_GroupListingFailureIsFatal(t *testing.T) {
	mem := seeded()
	mem.Fail(directorytest.OpListGroups, "", errors.New("access denied"))

	exporter, err := New(mem, 0)
	require.NoError(t, err)

	result, err := exporter.Export(t.Context(), "pool1")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Empty(t, mem.CallsTo(directorytest.OpListUsersInGroup))
}

func TestExport_Concurrent(t *testing.T) {
	mem := directorytest.NewMemory()
	for i := range 20 {
		mem.AddGroup("pool1", directory.GroupRecord{Name: fmt.Sprintf("group-%02d", i)}, fmt.Sprintf("user-%02d", i), "shared")
	}
	mem.Fail(directorytest.OpListUsersInGroup, "group-07", errors.New("throttled"))

	exporter, err := New(mem, 3)
	require.NoError(t, err)
	exporter.SetConcurrency(8)

	result, err := exporter.Export(t.Context(), "pool1")
	require.NoError(t, err)

	require.Len(t, result.Snapshot.Groups, 20)
	for i, spec := range result.Snapshot.Groups {
		assert.Equal(t, fmt.Sprintf("group-%02d", i), spec.Name)
		if i == 7 {
			assert.Empty(t, spec.Members)
			continue
		}
		assert.Equal(t, []string{fmt.Sprintf("user-%02d", i), "shared"}, spec.Usernames())
	}

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "group-07", result.Failures[0].Group)
}

func TestExport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	exporter, err := New(seeded(), 0)
	require.NoError(t, err)

	_, err = exporter.Export(ctx, "pool1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExport_Validation(t *testing.T) {
	_, err := New(directorytest.NewMemory(), 61)
	assert.Error(t, err)

	exporter, err := New(directorytest.NewMemory(), 0)
	require.NoError(t, err)
	_, err = exporter.Export(t.Context(), "")
	assert.Error(t, err)
}

func TestExport_ReplaysIntoEmptyDirectory(t *testing.T) {
	source := seeded()

	exporter, err := New(source, 0)
	require.NoError(t, err)
	result, err := exporter.Export(t.Context(), "pool1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, snapshot.Write(&buf, result.Snapshot))
	replayed, err := snapshot.Decode(&buf)
	require.NoError(t, err)

	target := directorytest.NewMemory()
	run, err := reconcile.NewOrchestrator(target).Run(t.Context(), replayed, reconcile.Options{})
	require.NoError(t, err)
	assert.False(t, run.HasFailures())

	assert.Equal(t, source.Groups("pool1"), target.Groups("pool1"))
	for _, name := range source.Groups("pool1") {
		assert.Equal(t, source.Members("pool1", name), target.Members("pool1", name), name)

		want, _ := source.Group("pool1", name)
		got, _ := target.Group("pool1", name)
		assert.Equal(t, want, got, name)
	}
}

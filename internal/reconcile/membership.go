package reconcile

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/snapshot"
)

// MembershipSynchronizer ensures snapshot members belong to their groups.
type MembershipSynchronizer struct {
	dir directory.Directory
}

// NewMembershipSynchronizer creates a MembershipSynchronizer.
func NewMembershipSynchronizer(dir directory.Directory) *MembershipSynchronizer {
	return &MembershipSynchronizer{dir: dir}
}

// Populate issues one add-user directive per (group, member) pair, in group
// order then member order. Membership is not pre-checked: the directive is
// idempotent. Failures are recorded and do not stop the phase.
func (s *MembershipSynchronizer) Populate(ctx context.Context, directoryID string, groups []snapshot.GroupSpec, result *RunResult) {
	for _, spec := range groups {
		for _, member := range spec.Members {
			s.ensure(ctx, directoryID, spec.Name, member.Username, result)
		}
	}
}

func (s *MembershipSynchronizer) ensure(ctx context.Context, directoryID, group, username string, result *RunResult) {
	var outcome directory.MembershipOutcome

	err := logging.LogOperation(ctx, logging.SubsystemSync, "add_user_to_group", map[string]any{
		"group_name": group,
		"username":   username,
	}, func() error {
		var err error
		outcome, err = s.dir.AddUserToGroup(ctx, directoryID, group, username)
		return err
	})

	if err != nil {
		tflog.SubsystemWarn(ctx, logging.SubsystemSync, "Membership directive failed", map[string]any{
			"group_name": group,
			"username":   username,
			"error":      err.Error(),
			"category":   string(directory.Category(err)),
		})
		result.recordMembership(MembershipResult{Group: group, Username: username, Err: err})
		return
	}

	result.recordMembership(MembershipResult{Group: group, Username: username, Outcome: outcome})
}

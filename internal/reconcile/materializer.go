package reconcile

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/snapshot"
)

// BuildCreateGroupInput builds the create payload for spec. The role
// reference is included only when non-empty and precedence only when the
// snapshot sets it.
func BuildCreateGroupInput(directoryID string, spec snapshot.GroupSpec) directory.CreateGroupInput {
	return directory.NewCreateGroupInput(directoryID, spec.Name).
		WithDescription(spec.Description).
		WithRoleReference(spec.RoleReference).
		WithPrecedence(spec.Precedence)
}

// Materializer creates absent groups.
type Materializer struct {
	dir directory.Directory
}

// NewMaterializer creates a Materializer.
func NewMaterializer(dir directory.Directory) *Materializer {
	return &Materializer{dir: dir}
}

// Materialize creates each absent group in order. A failure is recorded and
// the remaining groups are still attempted. It returns the names of the
// groups that now exist.
func (m *Materializer) Materialize(ctx context.Context, directoryID string, absent []snapshot.GroupSpec, result *RunResult) map[string]bool {
	created := make(map[string]bool, len(absent))

	for _, spec := range absent {
		in := BuildCreateGroupInput(directoryID, spec)

		err := logging.LogOperation(ctx, logging.SubsystemSync, "create_group", in.Fields(), func() error {
			_, err := m.dir.CreateGroup(ctx, in)
			return err
		})
		if err != nil {
			tflog.SubsystemWarn(ctx, logging.SubsystemSync, "Group creation failed, skipping its members", map[string]any{
				"group_name": spec.Name,
				"members":    len(spec.Members),
				"error":      err.Error(),
				"category":   string(directory.Category(err)),
			})
			result.recordCreateFailure(spec.Name, err)
			continue
		}

		tflog.SubsystemInfo(ctx, logging.SubsystemSync, "Group created", in.Fields())
		result.recordCreated(spec.Name)
		created[spec.Name] = true
	}

	return created
}

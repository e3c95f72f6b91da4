package reconcile

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/snapshot"
)

// VerifyError is a lookup failure that leaves a group's existence unknown.
// It is fatal to the run.
type VerifyError struct {
	Group string
	Err   error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("cannot verify group %q: %v", e.Group, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Verifier classifies snapshot groups as present or absent. It never
// mutates the directory.
type Verifier struct {
	dir directory.Directory
}

// NewVerifier creates a Verifier.
func NewVerifier(dir directory.Directory) *Verifier {
	return &Verifier{dir: dir}
}

// Verify looks up one group by exact name.
func (v *Verifier) Verify(ctx context.Context, directoryID string, spec snapshot.GroupSpec) (Presence, error) {
	var lookup directory.Lookup

	err := logging.LogOperation(ctx, logging.SubsystemSync, "get_group", map[string]any{
		"group_name": spec.Name,
	}, func() error {
		lookup = v.dir.GetGroup(ctx, directoryID, spec.Name)
		return lookup.Err
	})

	switch lookup.Status {
	case directory.LookupFound:
		return Present, nil
	case directory.LookupNotFound:
		return Absent, nil
	}

	if err == nil {
		err = fmt.Errorf("unexpected lookup status %s", lookup.Status)
	}
	return Absent, &VerifyError{Group: spec.Name, Err: err}
}

// VerifyAll classifies every group in snapshot order and records each
// classification in result. It stops at the first VerifyError.
func (v *Verifier) VerifyAll(ctx context.Context, snap *snapshot.Snapshot, result *RunResult) error {
	for i, spec := range snap.Groups {
		presence, err := v.Verify(ctx, snap.DirectoryID, spec)
		if err != nil {
			tflog.SubsystemError(ctx, logging.SubsystemSync, "Group verification failed", map[string]any{
				"index":      i,
				"group_name": spec.Name,
				"error":      err.Error(),
				"category":   string(directory.Category(err)),
			})
			return err
		}

		tflog.SubsystemDebug(ctx, logging.SubsystemSync, "Group verified", map[string]any{
			"index":      i,
			"group_name": spec.Name,
			"presence":   presence.String(),
		})
		result.classify(spec.Name, presence)
	}

	return nil
}

package reconcile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/snapshot"
)

var (
	// ErrMissingDirectoryID is returned for a snapshot without a directory ID.
	ErrMissingDirectoryID = errors.New("snapshot has no directory identifier")

	// ErrGroupsMissing is returned by a NoCreate run when any snapshot group
	// does not exist.
	ErrGroupsMissing = errors.New("missing groups detected: create them or remove them from the snapshot")
)

// Options controls a run.
type Options struct {
	// DryRun performs verification only.
	DryRun bool

	// NoCreate populates existing groups without creating any. The run stops
	// with ErrGroupsMissing before any change when a group is absent.
	NoCreate bool

	// RunID correlates log lines. A random ID is generated when empty.
	RunID string
}

// Orchestrator sequences verification, materialization and population.
type Orchestrator struct {
	verifier     *Verifier
	materializer *Materializer
	members      *MembershipSynchronizer
}

// NewOrchestrator creates an Orchestrator over dir.
func NewOrchestrator(dir directory.Directory) *Orchestrator {
	return &Orchestrator{
		verifier:     NewVerifier(dir),
		materializer: NewMaterializer(dir),
		members:      NewMembershipSynchronizer(dir),
	}
}

// SyncFile loads the snapshot at path and runs it. The snapshot is fully
// read before any directory call.
func (o *Orchestrator) SyncFile(ctx context.Context, path string, opts Options) (*RunResult, *snapshot.Snapshot, error) {
	snap, err := snapshot.Load(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	result, err := o.Run(ctx, snap, opts)
	return result, snap, err
}

// Run reconciles the directory with snap. The returned error is non-nil only
// for fatal conditions; per-item failures are in the RunResult.
func (o *Orchestrator) Run(ctx context.Context, snap *snapshot.Snapshot, opts Options) (*RunResult, error) {
	if snap == nil || snap.DirectoryID == "" {
		return nil, ErrMissingDirectoryID
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithField(ctx, "run_id", runID)

	result := &RunResult{
		RunID:       runID,
		DirectoryID: snap.DirectoryID,
		DryRun:      opts.DryRun,
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemSync, "Starting group synchronization", map[string]any{
		"directory_id": snap.DirectoryID,
		"groups":       len(snap.Groups),
		"memberships":  snap.MembershipCount(),
		"dry_run":      opts.DryRun,
		"no_create":    opts.NoCreate,
	})

	done := logging.LogPhase(ctx, "verify", map[string]any{"groups": len(snap.Groups)})
	err := o.verifier.VerifyAll(ctx, snap, result)
	done(err)
	if err != nil {
		return result, err
	}

	if opts.DryRun {
		tflog.SubsystemInfo(ctx, logging.SubsystemSync, "Dry run, skipping materialization and population", map[string]any{
			"absent": len(result.Absent()),
		})
		return result, nil
	}

	if opts.NoCreate && len(result.Absent()) > 0 {
		tflog.SubsystemError(ctx, logging.SubsystemSync, "Groups missing, skipping population", map[string]any{
			"absent": result.Absent(),
		})
		return result, ErrGroupsMissing
	}

	absent := make(map[string]bool)
	for _, name := range result.Absent() {
		absent[name] = true
	}

	var toCreate []snapshot.GroupSpec
	for _, spec := range snap.Groups {
		if absent[spec.Name] {
			toCreate = append(toCreate, spec)
		}
	}

	done = logging.LogPhase(ctx, "materialize", map[string]any{"absent": len(toCreate)})
	created := o.materializer.Materialize(ctx, snap.DirectoryID, toCreate, result)
	done(nil)

	var present []snapshot.GroupSpec
	for _, spec := range snap.Groups {
		if !absent[spec.Name] || created[spec.Name] {
			present = append(present, spec)
		}
	}

	done = logging.LogPhase(ctx, "populate", map[string]any{"groups": len(present)})
	o.members.Populate(ctx, snap.DirectoryID, present, result)
	done(nil)

	added, already, failed := result.MembershipCounts()
	tflog.SubsystemInfo(ctx, logging.SubsystemSync, "Group synchronization finished", map[string]any{
		"found":               len(result.Found()),
		"created":             len(result.Created),
		"creation_failures":   len(result.CreateFailures),
		"members_added":       added,
		"members_already":     already,
		"membership_failures": failed,
	})

	return result, nil
}

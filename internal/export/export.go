// Package export reads the groups and memberships of a directory into a
// snapshot that sync can replay, and writes user accounts as CSV.
package export

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"golang.org/x/sync/errgroup"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/pager"
	"github.com/isometry/groupsync/internal/snapshot"
)

// MemberFailure records a group whose members could not be listed.
type MemberFailure struct {
	Group string
	Err   error
}

// Result is an exported snapshot plus the groups exported without members.
type Result struct {
	Snapshot *snapshot.Snapshot
	Failures []MemberFailure
}

// Exporter walks a directory with the paginated lister.
type Exporter struct {
	dir         directory.Directory
	pageSize    int32
	concurrency int
}

// New creates an Exporter. See pager.ValidatePageSize for pageSize.
func New(dir directory.Directory, pageSize int32) (*Exporter, error) {
	size, err := pager.ValidatePageSize(pageSize)
	if err != nil {
		return nil, err
	}
	return &Exporter{dir: dir, pageSize: size, concurrency: 1}, nil
}

// SetConcurrency sets how many groups have their members listed at once.
// Values below 1 are treated as 1.
func (e *Exporter) SetConcurrency(n int) {
	e.concurrency = max(n, 1)
}

// Export lists every group of directoryID and then the members of each
// group. A failed group listing aborts the export. A failed member listing is
// recorded and the group is exported without members. Groups keep the order
// the directory listed them in regardless of concurrency.
func (e *Exporter) Export(ctx context.Context, directoryID string) (*Result, error) {
	if directoryID == "" {
		return nil, fmt.Errorf("directory identifier is required")
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemExport, "Starting export", map[string]any{
		"directory_id": directoryID,
		"page_size":    e.pageSize,
	})

	groups, err := pager.New(directory.GroupLister(e.dir, directoryID), e.pageSize)
	if err != nil {
		return nil, err
	}

	records, err := groups.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing groups of %s: %w", directoryID, err)
	}

	specs := make([]snapshot.GroupSpec, len(records))
	errs := make([]error, len(records))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, record := range records {
		specs[i] = groupSpec(record)
		g.Go(func() error {
			members, err := e.members(ctx, directoryID, record.Name)
			errs[i] = err
			for _, username := range members {
				specs[i].Members = append(specs[i].Members, snapshot.MemberRef{Username: username})
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Snapshot: &snapshot.Snapshot{DirectoryID: directoryID, Groups: specs},
	}
	for i, spec := range specs {
		if errs[i] != nil {
			tflog.SubsystemError(ctx, logging.SubsystemExport, "Failed to list group members", map[string]any{
				"group_name": spec.Name,
				"error":      errs[i].Error(),
			})
			result.Failures = append(result.Failures, MemberFailure{Group: spec.Name, Err: errs[i]})
			continue
		}
		tflog.SubsystemDebug(ctx, logging.SubsystemExport, "Exported group", map[string]any{
			"group_name": spec.Name,
			"members":    len(spec.Members),
		})
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemExport, "Export finished", map[string]any{
		"groups":          len(result.Snapshot.Groups),
		"memberships":     result.Snapshot.MembershipCount(),
		"member_failures": len(result.Failures),
	})

	return result, nil
}

func (e *Exporter) members(ctx context.Context, directoryID, group string) ([]string, error) {
	lister, err := pager.New(directory.MemberLister(e.dir, directoryID, group), e.pageSize)
	if err != nil {
		return nil, err
	}
	return lister.Collect(ctx)
}

// groupSpec converts a record. An empty description is omitted.
func groupSpec(record directory.GroupRecord) snapshot.GroupSpec {
	spec := snapshot.GroupSpec{
		Name:          record.Name,
		RoleReference: record.RoleReference,
		Precedence:    record.Precedence,
	}
	if record.Description != "" {
		description := record.Description
		spec.Description = &description
	}
	return spec
}

package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/pager"
)

// ExportUsers writes every user account of directoryID to w as CSV. The
// header row is the directory's user attribute list and each following row
// holds one user's values in header order, empty where the user has none.
// Rows are written as pages arrive, so a listing error leaves the rows
// already written in w. It returns the number of users written.
func (e *Exporter) ExportUsers(ctx context.Context, directoryID string, w io.Writer) (int, error) {
	if directoryID == "" {
		return 0, fmt.Errorf("directory identifier is required")
	}

	columns, err := e.dir.UserAttributes(ctx, directoryID)
	if err != nil {
		return 0, fmt.Errorf("reading user attributes of %s: %w", directoryID, err)
	}

	users, err := pager.New(directory.UserLister(e.dir, directoryID), e.pageSize)
	if err != nil {
		return 0, err
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemExport, "Starting user export", map[string]any{
		"directory_id": directoryID,
		"columns":      len(columns),
		"page_size":    e.pageSize,
	})

	out := csv.NewWriter(w)
	if err := out.Write(columns); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	count := 0
	row := make([]string, len(columns))
	for user, err := range users.All(ctx) {
		if err != nil {
			out.Flush()
			return count, fmt.Errorf("listing users of %s: %w", directoryID, err)
		}

		for i, column := range columns {
			row[i] = user.Value(column)
		}
		if err := out.Write(row); err != nil {
			return count, fmt.Errorf("writing user %s: %w", user.Username, err)
		}
		count++
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return count, fmt.Errorf("writing users: %w", err)
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemExport, "User export finished", map[string]any{
		"directory_id": directoryID,
		"users":        count,
	})

	return count, nil
}

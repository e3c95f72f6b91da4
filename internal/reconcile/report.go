package reconcile

import (
	"fmt"
	"io"
	"strings"

	"github.com/isometry/groupsync/internal/snapshot"
)

// WriteReport writes the operator report for a run. Dry runs list the
// intended memberships from snap; other runs list the directives issued.
func WriteReport(w io.Writer, snap *snapshot.Snapshot, result *RunResult) error {
	var b strings.Builder

	writeVerification(&b, result)

	if result.DryRun {
		writeIntent(&b, snap, result)
	} else {
		writeCreation(&b, result)
		writeMemberships(&b, result)
		writeSummary(&b, result)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// VerificationText returns the classification section of the report. It is
// identical for dry and non-dry runs over the same directory state.
func VerificationText(result *RunResult) string {
	var b strings.Builder
	writeVerification(&b, result)
	return b.String()
}

func writeVerification(b *strings.Builder, result *RunResult) {
	fmt.Fprintf(b, "User Pool Id: %s\n", result.DirectoryID)
	b.WriteString("Verifying groups...\n")
	for i, c := range result.Classifications {
		status := "Exists."
		if c.Presence == Absent {
			status = "Does not exist."
		}
		fmt.Fprintf(b, "Group %d : %s %s\n", i, c.Group, status)
	}
}

func writeIntent(b *strings.Builder, snap *snapshot.Snapshot, result *RunResult) {
	b.WriteString("Dry run: no changes were made.\n")

	absent := result.Absent()
	if len(absent) == 0 {
		b.WriteString("All groups are present.\n")
	} else {
		fmt.Fprintf(b, "Would create %d missing groups.\n", len(absent))
		for _, name := range absent {
			fmt.Fprintf(b, "\t%s\n", name)
		}
	}

	b.WriteString("Intended memberships:\n")
	if snap == nil {
		return
	}
	for _, g := range snap.Groups {
		fmt.Fprintf(b, "Group:%s (%d members)\n", g.Name, len(g.Members))
		for _, m := range g.Members {
			fmt.Fprintf(b, "\t%s\n", m.Username)
		}
	}
}

func writeCreation(b *strings.Builder, result *RunResult) {
	attempted := len(result.Created) + len(result.CreateFailures)
	if attempted == 0 {
		b.WriteString("All groups are present.\n")
		return
	}

	fmt.Fprintf(b, "Creating %d missing groups.\n", attempted)
	for _, name := range result.Created {
		fmt.Fprintf(b, "\t%s\n", name)
	}
	for _, f := range result.CreateFailures {
		fmt.Fprintf(b, "\t%s FAILED: %v\n", f.Group, f.Err)
	}
}

func writeMemberships(b *strings.Builder, result *RunResult) {
	b.WriteString("Adding users to groups.\n")

	current := ""
	for i, m := range result.Memberships {
		if i == 0 || m.Group != current {
			fmt.Fprintf(b, "Group:%s\n", m.Group)
			current = m.Group
		}
		if m.Err != nil {
			fmt.Fprintf(b, "\tUser:%s FAILED: %v\n", m.Username, m.Err)
			continue
		}
		fmt.Fprintf(b, "\tUser:%s %s\n", m.Username, m.Outcome)
	}

	for _, f := range result.CreateFailures {
		fmt.Fprintf(b, "Group:%s skipped, creation failed\n", f.Group)
	}
}

func writeSummary(b *strings.Builder, result *RunResult) {
	added, already, failed := result.MembershipCounts()
	fmt.Fprintf(b, "Summary: %d found, %d created, %d creation failures; %d added, %d already-member, %d membership failures\n",
		len(result.Found()), len(result.Created), len(result.CreateFailures), added, already, failed)
}

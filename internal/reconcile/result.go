package reconcile

import (
	"github.com/isometry/groupsync/internal/directory"
)

// Presence is the verifier's classification of a snapshot group.
type Presence int

const (
	Absent Presence = iota
	Present
)

func (p Presence) String() string {
	if p == Present {
		return "present"
	}
	return "absent"
}

// Classification pairs a snapshot group with its presence.
type Classification struct {
	Group    string
	Presence Presence
}

// GroupFailure records a group that could not be created.
type GroupFailure struct {
	Group string
	Err   error
}

// MembershipResult records one ensure-membership directive.
type MembershipResult struct {
	Group    string
	Username string
	Outcome  directory.MembershipOutcome // zero when Err is set
	Err      error
}

// Failed reports whether the directive failed.
func (m MembershipResult) Failed() bool {
	return m.Err != nil
}

// RunResult accumulates the outcome of a run for reporting.
type RunResult struct {
	RunID       string
	DirectoryID string
	DryRun      bool

	// Classifications is in snapshot order.
	Classifications []Classification
	// Created lists groups created by this run, in snapshot order.
	Created []string
	// CreateFailures lists groups whose creation failed.
	CreateFailures []GroupFailure
	// Memberships is in issuance order.
	Memberships []MembershipResult
}

func (r *RunResult) classify(group string, presence Presence) {
	r.Classifications = append(r.Classifications, Classification{Group: group, Presence: presence})
}

func (r *RunResult) recordCreated(group string) {
	r.Created = append(r.Created, group)
}

func (r *RunResult) recordCreateFailure(group string, err error) {
	r.CreateFailures = append(r.CreateFailures, GroupFailure{Group: group, Err: err})
}

func (r *RunResult) recordMembership(m MembershipResult) {
	r.Memberships = append(r.Memberships, m)
}

// Found returns the groups classified present, in snapshot order.
func (r *RunResult) Found() []string {
	return r.withPresence(Present)
}

// Absent returns the groups classified absent, in snapshot order.
func (r *RunResult) Absent() []string {
	return r.withPresence(Absent)
}

func (r *RunResult) withPresence(p Presence) []string {
	var out []string
	for _, c := range r.Classifications {
		if c.Presence == p {
			out = append(out, c.Group)
		}
	}
	return out
}

// MembershipCounts tallies membership outcomes.
func (r *RunResult) MembershipCounts() (added, alreadyMember, failed int) {
	for _, m := range r.Memberships {
		switch {
		case m.Err != nil:
			failed++
		case m.Outcome == directory.MembershipAlreadyMember:
			alreadyMember++
		default:
			added++
		}
	}
	return added, alreadyMember, failed
}

// MembershipFailures returns the failed directives.
func (r *RunResult) MembershipFailures() []MembershipResult {
	var out []MembershipResult
	for _, m := range r.Memberships {
		if m.Failed() {
			out = append(out, m)
		}
	}
	return out
}

// HasFailures reports whether any creation or membership directive failed.
func (r *RunResult) HasFailures() bool {
	return len(r.CreateFailures) > 0 || len(r.MembershipFailures()) > 0
}

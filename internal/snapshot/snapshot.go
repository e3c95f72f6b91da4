// Package snapshot reads and writes the declarative group snapshot.
package snapshot

// Snapshot is the desired state of a directory's groups and memberships.
type Snapshot struct {
	DirectoryID string      `json:"UserPoolId"`
	Groups      []GroupSpec `json:"Groups"`
}

// GroupSpec describes one desired group.
type GroupSpec struct {
	Name string `json:"GroupName"`

	// Description is nil when the snapshot omits it.
	Description *string `json:"Description,omitempty"`

	// RoleReference is omitted from create requests when empty.
	RoleReference string `json:"RoleArn,omitempty"`

	// Precedence is nil when the snapshot omits it, which is distinct from 0.
	Precedence *int32 `json:"Precedence,omitempty"`

	Members []MemberRef `json:"Users"`
}

// MemberRef names a user by username.
type MemberRef struct {
	Username string `json:"Username"`
}

// Usernames returns the member usernames in snapshot order.
func (g GroupSpec) Usernames() []string {
	names := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		names = append(names, m.Username)
	}
	return names
}

// MembershipCount returns the number of (group, member) pairs.
func (s *Snapshot) MembershipCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Members)
	}
	return n
}

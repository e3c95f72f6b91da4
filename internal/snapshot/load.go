package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/logging"
)

// LoadError reports a snapshot that could not be read or does not have the
// required shape.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid snapshot: %v", e.Err)
	}
	return fmt.Sprintf("invalid snapshot %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var (
	ErrMissingDirectoryID = errors.New("missing UserPoolId")
	ErrMissingGroups      = errors.New("missing Groups")
	ErrMissingGroupName   = errors.New("missing GroupName")
	ErrMissingUsername    = errors.New("missing Username")
	ErrDuplicateGroup     = errors.New("duplicate GroupName")
	ErrTrailingData       = errors.New("malformed JSON: unexpected data after snapshot")
)

// wire mirrors the file layout with pointers so that absent keys can be told
// apart from empty values.
type wireSnapshot struct {
	UserPoolId *string      `json:"UserPoolId"`
	Groups     *[]wireGroup `json:"Groups"`
}

type wireGroup struct {
	GroupName   *string      `json:"GroupName"`
	Description *string      `json:"Description"`
	RoleArn     *string      `json:"RoleArn"`
	Precedence  *int32       `json:"Precedence"`
	Users       []wireMember `json:"Users"`
}

type wireMember struct {
	Username *string `json:"Username"`
}

// Load reads and validates the snapshot at path.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemSnapshot, "Loaded snapshot", map[string]any{
		"path":         path,
		"directory_id": snap.DirectoryID,
		"groups":       len(snap.Groups),
		"memberships":  snap.MembershipCount(),
	})

	return snap, nil
}

// Decode parses and validates a snapshot. Unknown keys are ignored.
func Decode(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(r)

	var wire wireSnapshot
	if err := dec.Decode(&wire); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &LoadError{Err: ErrTrailingData}
	}

	snap, err := wire.build()
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return snap, nil
}

func (w *wireSnapshot) build() (*Snapshot, error) {
	if w.UserPoolId == nil || *w.UserPoolId == "" {
		return nil, ErrMissingDirectoryID
	}
	if w.Groups == nil {
		return nil, ErrMissingGroups
	}

	snap := &Snapshot{
		DirectoryID: *w.UserPoolId,
		Groups:      make([]GroupSpec, 0, len(*w.Groups)),
	}
	seen := make(map[string]bool, len(*w.Groups))

	for i, g := range *w.Groups {
		if g.GroupName == nil || *g.GroupName == "" {
			return nil, fmt.Errorf("group %d: %w", i, ErrMissingGroupName)
		}
		name := *g.GroupName
		if seen[name] {
			return nil, fmt.Errorf("group %d: %w %q", i, ErrDuplicateGroup, name)
		}
		seen[name] = true

		spec := GroupSpec{
			Name:        name,
			Description: g.Description,
			Precedence:  g.Precedence,
			Members:     make([]MemberRef, 0, len(g.Users)),
		}
		if g.RoleArn != nil {
			spec.RoleReference = *g.RoleArn
		}

		for j, u := range g.Users {
			if u.Username == nil || *u.Username == "" {
				return nil, fmt.Errorf("group %q user %d: %w", name, j, ErrMissingUsername)
			}
			spec.Members = append(spec.Members, MemberRef{Username: *u.Username})
		}

		snap.Groups = append(snap.Groups, spec)
	}

	return snap, nil
}

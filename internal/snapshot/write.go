package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// Write encodes snap as indented JSON.
func Write(w io.Writer, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	out := Snapshot{
		DirectoryID: snap.DirectoryID,
		Groups:      slices.Clone(snap.Groups),
	}
	if out.Groups == nil {
		out.Groups = []GroupSpec{}
	}
	for i := range out.Groups {
		if out.Groups[i].Members == nil {
			out.Groups[i].Members = []MemberRef{}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// WriteFile writes snap to path, replacing any existing file.
func WriteFile(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	if err := Write(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

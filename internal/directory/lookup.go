package directory

import "fmt"

// LookupStatus classifies the result of GetGroup.
type LookupStatus int

const (
	LookupFound LookupStatus = iota + 1
	LookupNotFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	case LookupFailed:
		return "failed"
	default:
		return fmt.Sprintf("LookupStatus(%d)", int(s))
	}
}

// Lookup is the result of GetGroup. Group is set only when Status is
// LookupFound and Err only when Status is LookupFailed.
type Lookup struct {
	Status LookupStatus
	Group  GroupRecord
	Err    error
}

// Found reports that the group exists.
func Found(group GroupRecord) Lookup {
	return Lookup{Status: LookupFound, Group: group}
}

// NotFound reports that the directory has no group with the requested name.
func NotFound() Lookup {
	return Lookup{Status: LookupNotFound}
}

// Failed reports that the lookup could not determine whether the group exists.
func Failed(err error) Lookup {
	if err == nil {
		err = fmt.Errorf("lookup failed without an error")
	}
	return Lookup{Status: LookupFailed, Err: err}
}

// LookupFromError maps err to a Lookup: not-found errors become NotFound and
// all others Failed.
func LookupFromError(err error) Lookup {
	if IsNotFound(err) {
		return NotFound()
	}
	return Failed(err)
}

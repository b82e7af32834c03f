package objstore

import "fmt"

// PathNotFoundError is returned by Tree.Delete and Tree.FindPath-adjacent
// operations when the requested path does not exist (spec.md §4.2, §7).
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %q", e.Path)
}

// PathAlreadyExistsError is returned when an "add" operation targets a path
// that already exists (spec.md §4.2, §7).
type PathAlreadyExistsError struct {
	Path string
}

func (e *PathAlreadyExistsError) Error() string {
	return fmt.Sprintf("path already exists: %q", e.Path)
}

// WrongKindError is returned when an operation expects a directory and
// finds a file, or vice versa (spec.md §4.2, §7).
type WrongKindError struct {
	Path string
	Want string
}

func (e *WrongKindError) Error() string {
	return fmt.Sprintf("wrong kind at %q: want %s", e.Path, e.Want)
}

// InvalidStateError is returned when an operation is attempted on an object
// in the wrong lifecycle state, e.g. comparing two non-finalised trees
// (spec.md §4.1 "Failure semantics").
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Reason
}

package historyreader

import "fmt"

// CopySourceNotFoundError is returned when a copyfrom reference cannot be
// resolved and no inline content is available as a fallback
// (spec.md §4.2, §7).
type CopySourceNotFoundError struct {
	Path         string
	CopyFromPath string
	CopyFromRev  int
}

func (e *CopySourceNotFoundError) Error() string {
	return fmt.Sprintf("copy source not found: %q@%d (wanted by %q)", e.CopyFromPath, e.CopyFromRev, e.Path)
}

// NodeError annotates an underlying tree-operation error with the offending
// RevisionNode, matching spec.md §7's
// "NODE <kind> Path: ..., action: ..." propagation convention.
type NodeError struct {
	Action string
	Kind   string
	Path   string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("NODE %s Path: %s, action: %s: %v", e.Kind, e.Path, e.Action, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

package projecttree

import "fmt"

// InvalidConfigError reports malformed configuration: bad range strings,
// unknown modules, or conflicting refnames at root (spec.md §7).
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", e.Reason)
}

// RefnameConflictError reports an unresolvable non-terminal segment
// collision: a path segment of the wanted refname is already a terminal
// ref owned by someone else (spec.md §4.8, §7).
type RefnameConflictError struct {
	Refname      string
	ConflictPath string
	Owner        string
}

func (e *RefnameConflictError) Error() string {
	return fmt.Sprintf("refname conflict: %q collides with terminal ref segment %q owned by %q",
		e.Refname, e.ConflictPath, e.Owner)
}

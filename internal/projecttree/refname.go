package projecttree

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vss2git/vss2git/internal/pathtree"
)

// RefAllocator resolves refname collisions across every branch by
// appending "___N" suffixes, 1..99, and gives up with a warning beyond
// that (spec.md §4.8 "Refname uniqueness").
type RefAllocator struct {
	tree *pathtree.Tree[struct{}]
}

// NewRefAllocator returns an empty allocator.
func NewRefAllocator() *RefAllocator {
	return &RefAllocator{tree: pathtree.New[struct{}]()}
}

// Allocate claims a usable refname for owner, starting from want. It
// returns the claimed refname, or ("", err) if a non-terminal segment of
// want collides with an existing terminal ref (unresolvable, spec.md
// §4.8) or all 99 suffixes are exhausted (dropped with a warning, not an
// error — the caller skips emitting this ref).
func (a *RefAllocator) Allocate(owner, want string) (string, error) {
	if err := a.checkSegmentCollision(want); err != nil {
		return "", err
	}
	if claimed, _ := a.tree.ClaimRefname(want, owner); claimed {
		return want, nil
	}
	for n := 1; n <= 99; n++ {
		candidate := fmt.Sprintf("%s___%d", want, n)
		if err := a.checkSegmentCollision(candidate); err != nil {
			continue
		}
		if claimed, _ := a.tree.ClaimRefname(candidate, owner); claimed {
			logrus.Warnf("projecttree: refname %q already used, remapped to %q for %s", want, candidate, owner)
			return candidate, nil
		}
	}
	logrus.Warnf("projecttree: refname %q exhausted ___1..___99 remapping, dropping ref for %s", want, owner)
	return "", nil
}

// checkSegmentCollision reports an unresolvable RefnameConflictError when
// a non-terminal path segment of want is already claimed as a terminal
// ref by someone else (e.g. "refs/heads/a" exists and something wants
// "refs/heads/a/b").
func (a *RefAllocator) checkSegmentCollision(want string) error {
	segs := strings.Split(strings.Trim(want, "/"), "/")
	for i := 1; i < len(segs); i++ {
		prefix := strings.Join(segs[:i], "/")
		if owner, ok := a.owner(prefix); ok {
			return &RefnameConflictError{Refname: want, ConflictPath: prefix, Owner: owner}
		}
	}
	return nil
}

func (a *RefAllocator) owner(refname string) (string, bool) {
	for _, e := range a.tree.UsedBy() {
		if e.Refname == refname {
			return e.Owner, true
		}
	}
	return "", false
}

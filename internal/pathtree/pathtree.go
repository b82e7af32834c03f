// Package pathtree implements the runtime bookkeeping radix tree of
// spec.md §3 "PathTree": a generic tree keyed by "/"-segmented paths used to
// track branch mapping state and refname collisions. Unlike
// internal/objstore's Tree, this structure is not content-addressed — it is
// mutated in place and owned exclusively by the scheduler's main thread
// (spec.md §5).
package pathtree

import (
	"strings"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// MappedState is the tri-state flag a directory carries: whether a mapping
// rule has been evaluated for it yet, and if so, whether it produced a
// branch or an explicit block.
type MappedState int

const (
	// Unknown means no mapping rule has been evaluated for this path yet.
	Unknown MappedState = iota
	// Mapped means a rule matched and produced a branch.
	Mapped
	// Unmapped means a rule matched and explicitly forbade branch creation
	// (an empty refname in spec.md §4.3).
	Unmapped
)

type node[T any] struct {
	children map[string]*node[T]
	value    *T
	hasValue bool
	state    MappedState
}

func newNode[T any]() *node[T] {
	return &node[T]{children: make(map[string]*node[T])}
}

// usedByEntry records one refname claim, in insertion order, for
// deterministic collision reporting.
type usedByEntry struct {
	seq     int64
	refname string
	owner   string
}

// Tree is a generic path-keyed radix tree plus a side index of claimed
// refnames (the "used_by" dictionary of spec.md §3).
type Tree[T any] struct {
	root    *node[T]
	usedBy  map[string]*usedByEntry
	seq     int64
	history []*usedByEntry
}

// New returns an empty Tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{root: newNode[T](), usedBy: make(map[string]*usedByEntry)}
}

func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Set associates value with path, creating intermediate nodes as needed.
func (t *Tree[T]) Set(path string, value T) {
	n := t.root
	for _, seg := range segments(path) {
		child, ok := n.children[seg]
		if !ok {
			child = newNode[T]()
			n.children[seg] = child
		}
		n = child
	}
	v := value
	n.value = &v
	n.hasValue = true
}

// Get returns the value set exactly at path.
func (t *Tree[T]) Get(path string) (T, bool) {
	n := t.root
	for _, seg := range segments(path) {
		child, ok := n.children[seg]
		if !ok {
			var zero T
			return zero, false
		}
		n = child
	}
	if n.hasValue {
		return *n.value, true
	}
	var zero T
	return zero, false
}

// FindPrefix performs a longest-prefix match: it walks path segment by
// segment and returns the value and matched prefix of the deepest ancestor
// (or path itself) that carries a value.
func (t *Tree[T]) FindPrefix(path string) (matched string, value T, ok bool) {
	n := t.root
	segs := segments(path)
	bestIdx := -1
	var best *T
	if n.hasValue {
		bestIdx = 0
		best = n.value
	}
	for i, seg := range segs {
		child, exists := n.children[seg]
		if !exists {
			break
		}
		n = child
		if n.hasValue {
			bestIdx = i + 1
			best = n.value
		}
	}
	if best == nil {
		var zero T
		return "", zero, false
	}
	return strings.Join(segs[:bestIdx], "/"), *best, true
}

// SetMapped sets the tri-state mapped flag for path.
func (t *Tree[T]) SetMapped(path string, state MappedState) {
	n := t.root
	for _, seg := range segments(path) {
		child, ok := n.children[seg]
		if !ok {
			child = newNode[T]()
			n.children[seg] = child
		}
		n = child
	}
	n.state = state
}

// Mapped returns the tri-state mapped flag recorded for path, or Unknown if
// the path was never visited.
func (t *Tree[T]) Mapped(path string) MappedState {
	n := t.root
	for _, seg := range segments(path) {
		child, ok := n.children[seg]
		if !ok {
			return Unknown
		}
		n = child
	}
	return n.state
}

// ClaimRefname tries to claim refname for owner, returning false and the
// existing owner if it is already claimed by someone else.
func (t *Tree[T]) ClaimRefname(refname, owner string) (claimed bool, existingOwner string) {
	if e, ok := t.usedBy[refname]; ok {
		return false, e.owner
	}
	t.seq++
	e := &usedByEntry{seq: t.seq, refname: refname, owner: owner}
	t.usedBy[refname] = e
	t.history = append(t.history, e)
	return true, ""
}

// UsedByEntry is one refname claim, exposed for reporting.
type UsedByEntry struct {
	Refname string
	Owner   string
}

// UsedBy returns every claimed refname in the deterministic order they were
// claimed, via a binary heap keyed by claim sequence — the same ordered
// traversal idiom the teacher uses for its committer-time commit walk
// (modules/zeta/object/commit_walker_ctime.go).
func (t *Tree[T]) UsedBy() []UsedByEntry {
	h := binaryheap.NewWith(func(a, b interface{}) int {
		ea, eb := a.(*usedByEntry), b.(*usedByEntry)
		switch {
		case ea.seq < eb.seq:
			return -1
		case ea.seq > eb.seq:
			return 1
		default:
			return 0
		}
	})
	for _, e := range t.history {
		h.Push(e)
	}
	out := make([]UsedByEntry, 0, h.Size())
	for !h.Empty() {
		v, _ := h.Pop()
		e := v.(*usedByEntry)
		out = append(out, UsedByEntry{Refname: e.refname, Owner: e.owner})
	}
	return out
}

package projecttree

import "github.com/vss2git/vss2git/internal/revstream"

// Combinable reports whether two consecutive source revisions may be
// merged into one per spec.md §4.5: same author, same non-empty log (or
// the later one empty), timestamps within maxSeconds, and not one
// "labels only" while the other is "changes only".
func Combinable(a, b *revstream.Revision, maxSeconds int64) bool {
	if a.Author != b.Author {
		return false
	}
	if b.Log != "" && a.Log != b.Log {
		return false
	}
	if d := b.DateTime - a.DateTime; d < 0 || d > maxSeconds {
		return false
	}
	aLabelsOnly, aChangesOnly := classify(a)
	bLabelsOnly, bChangesOnly := classify(b)
	if aLabelsOnly && bChangesOnly {
		return false
	}
	if aChangesOnly && bLabelsOnly {
		return false
	}
	return true
}

func classify(r *revstream.Revision) (labelsOnly, changesOnly bool) {
	labelsOnly = true
	changesOnly = true
	for _, n := range r.Nodes {
		if n.Action != revstream.ActionLabel {
			labelsOnly = false
		}
		if n.Action == revstream.ActionLabel {
			changesOnly = false
		}
	}
	if len(r.Nodes) == 0 {
		labelsOnly, changesOnly = false, false
	}
	return
}

// Combine appends b's nodes to a and returns the surviving revision
// (spec.md §4.5 "nodes from the later revision are appended to the
// earlier; copy references to the merged revision are rewritten to the
// surviving one"). The rewrite itself is the caller's job (see
// Engine.rewriteCombinedCopies): a later node's CopyFromRev pointing at
// b.RevOrdinal has to be updated wherever it appears in the rest of the
// stream, which is outside this function's view.
func Combine(a, b *revstream.Revision) *revstream.Revision {
	merged := *a
	merged.Nodes = append(append([]revstream.Node{}, a.Nodes...), b.Nodes...)
	if merged.Log == "" {
		merged.Log = b.Log
	}
	return &merged
}

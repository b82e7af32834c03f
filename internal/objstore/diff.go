package objstore

import "path"

// DiffEntry is one emission of Tree.Compare: a path together with the old
// and new object (either may be nil) and the TreeEntry metadata (name,
// mode) on each side, matching spec.md §4.1's
// "(path, old_obj?, new_obj?, old_item?, new_item?)" tuple.
type DiffEntry struct {
	Path      string
	OldObject Object
	NewObject Object
	OldItem   *TreeEntry
	NewItem   *TreeEntry
}

// Compare performs the deterministic, name-sorted ordered subtree diff of
// spec.md §4.1: a merge over both trees' entries that recurses into common
// directories, and — when expandDirContents is true — expands an
// entirely-added or entirely-removed subtree into its individual leaves.
// Both t and other must be finalised.
func (t *Tree) Compare(other *Tree, prefix string, expandDirContents bool) ([]DiffEntry, error) {
	if !t.finalized || !other.finalized {
		return nil, &InvalidStateError{Reason: "Compare requires finalised trees"}
	}
	var out []DiffEntry
	mergeDirs(t, other, prefix, expandDirContents, &out)
	return out, nil
}

func mergeDirs(oldTree, newTree *Tree, prefix string, expand bool, out *[]DiffEntry) {
	oe, ne := oldTree.entries, newTree.entries
	i, j := 0, 0
	for i < len(oe) && j < len(ne) {
		switch {
		case oe[i].Name < ne[j].Name:
			diffNode(childPath(prefix, oe[i].Name), oe[i].Object, nil, &oe[i], nil, expand, out)
			i++
		case oe[i].Name > ne[j].Name:
			diffNode(childPath(prefix, ne[j].Name), nil, ne[j].Object, nil, &ne[j], expand, out)
			j++
		default:
			diffNode(childPath(prefix, oe[i].Name), oe[i].Object, ne[j].Object, &oe[i], &ne[j], expand, out)
			i++
			j++
		}
	}
	for ; i < len(oe); i++ {
		diffNode(childPath(prefix, oe[i].Name), oe[i].Object, nil, &oe[i], nil, expand, out)
	}
	for ; j < len(ne); j++ {
		diffNode(childPath(prefix, ne[j].Name), nil, ne[j].Object, nil, &ne[j], expand, out)
	}
}

func childPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func diffNode(p string, oldObj, newObj Object, oldItem, newItem *TreeEntry, expand bool, out *[]DiffEntry) {
	switch {
	case oldObj == nil && newObj == nil:
		return
	case oldObj == nil:
		emitAdded(p, newObj, newItem, expand, out)
	case newObj == nil:
		emitDeleted(p, oldObj, oldItem, expand, out)
	case oldObj.Hash() == newObj.Hash():
		return
	case oldObj.IsDir() && newObj.IsDir():
		mergeDirs(oldObj.(*Tree), newObj.(*Tree), p, expand, out)
	case oldObj.IsDir() != newObj.IsDir():
		// Directory-vs-file collision: delete then add, per spec.md §4.1
		// and Design Note "callers should not assume both halves appear
		// atomically".
		emitDeleted(p, oldObj, oldItem, expand, out)
		emitAdded(p, newObj, newItem, expand, out)
	default:
		*out = append(*out, DiffEntry{Path: p, OldObject: oldObj, NewObject: newObj, OldItem: oldItem, NewItem: newItem})
	}
}

func emitAdded(p string, obj Object, item *TreeEntry, expand bool, out *[]DiffEntry) {
	if tr, ok := obj.(*Tree); ok && expand {
		for _, e := range tr.entries {
			e := e
			diffNode(childPath(p, e.Name), nil, e.Object, nil, &e, expand, out)
		}
		return
	}
	*out = append(*out, DiffEntry{Path: p, NewObject: obj, NewItem: item})
}

func emitDeleted(p string, obj Object, item *TreeEntry, expand bool, out *[]DiffEntry) {
	if tr, ok := obj.(*Tree); ok && expand {
		for _, e := range tr.entries {
			e := e
			diffNode(childPath(p, e.Name), e.Object, nil, &e, nil, expand, out)
		}
		return
	}
	*out = append(*out, DiffEntry{Path: p, OldObject: obj, OldItem: item})
}

// DifferenceMetrics summarises a recursive leaf-file comparison between two
// trees, used by spec.md §4.1 to decide whether two trees are "similar" for
// rename/copy heuristics (added+deleted < identical+different). A directory
// present on both sides is never itself counted as identical or different;
// it contributes only through the leaf files underneath it.
type DifferenceMetrics struct {
	Identical int
	Different int
	Deleted   int
	Added     int
}

// IsSimilarTo reports the heuristic of spec.md §4.1: more of the content
// carries over unchanged or merely modified than was added or removed.
func (m DifferenceMetrics) IsSimilarTo() bool {
	return m.Added+m.Deleted < m.Identical+m.Different
}

// GetDifferenceMetrics compares t against other by walking matching
// directory entries recursively, counting leaves only, matching
// original_source/history_reader.py's get_difference_metrics.
func (t *Tree) GetDifferenceMetrics(other *Tree) DifferenceMetrics {
	var m DifferenceMetrics
	accumulateDifferenceMetrics(t, other, &m)
	return m
}

func accumulateDifferenceMetrics(t, other *Tree, m *DifferenceMetrics) {
	oe, ne := t.entries, other.entries
	i, j := 0, 0
	for i < len(oe) && j < len(ne) {
		switch {
		case oe[i].Name < ne[j].Name:
			countRemovedLeaves(oe[i].Object, m)
			i++
		case oe[i].Name > ne[j].Name:
			countAddedLeaves(ne[j].Object, m)
			j++
		default:
			oldObj, newObj := oe[i].Object, ne[j].Object
			switch {
			case oldObj.IsDir() && newObj.IsDir():
				accumulateDifferenceMetrics(oldObj.(*Tree), newObj.(*Tree), m)
			case oldObj.IsDir() != newObj.IsDir():
				countRemovedLeaves(oldObj, m)
				countAddedLeaves(newObj, m)
			case oldObj.Hash() == newObj.Hash():
				m.Identical++
			default:
				m.Different++
			}
			i++
			j++
		}
	}
	for ; i < len(oe); i++ {
		countRemovedLeaves(oe[i].Object, m)
	}
	for ; j < len(ne); j++ {
		countAddedLeaves(ne[j].Object, m)
	}
}

func countAddedLeaves(obj Object, m *DifferenceMetrics) {
	if tr, ok := obj.(*Tree); ok {
		for _, e := range tr.entries {
			countAddedLeaves(e.Object, m)
		}
		return
	}
	m.Added++
}

func countRemovedLeaves(obj Object, m *DifferenceMetrics) {
	if tr, ok := obj.(*Tree); ok {
		for _, e := range tr.entries {
			countRemovedLeaves(e.Object, m)
		}
		return
	}
	m.Deleted++
}

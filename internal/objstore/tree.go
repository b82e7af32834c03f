package objstore

import (
	"sort"
	"strings"
)

// TreeEntry is one named child of a Tree.
type TreeEntry struct {
	Name   string
	Object Object
	Mode   FileMode
}

// Tree is an immutable, name-sorted (once finalised) directory node. Trees
// support copy-on-write Set/Delete that share unchanged subtrees with their
// parent (spec.md §3 "Invariants").
type Tree struct {
	entries   []TreeEntry
	byName    map[string]int
	attrs     map[string][]byte
	hash      Hash
	finalized bool
}

// NewTree returns an empty, non-finalised Tree.
func NewTree() *Tree {
	return &Tree{byName: map[string]int{}}
}

// Hash implements Object. Calling Hash before Finalize runs is a
// programmer error: it returns the zero hash.
func (t *Tree) Hash() Hash { return t.hash }

// Finalized implements Object.
func (t *Tree) Finalized() bool { return t.finalized }

// IsDir implements Object.
func (t *Tree) IsDir() bool { return true }

// Len returns the number of entries.
func (t *Tree) Len() int { return len(t.entries) }

// Entries returns the tree's entries in name order. Callers must not
// mutate the returned slice.
func (t *Tree) Entries() []TreeEntry { return t.entries }

// Get returns the entry named name, if present.
func (t *Tree) Get(name string) (TreeEntry, bool) {
	i, ok := t.byName[name]
	if !ok {
		return TreeEntry{}, false
	}
	return t.entries[i], true
}

// Attr returns the named git attribute recorded directly on this tree node
// (e.g. from a .gitattributes file materialised at this directory).
func (t *Tree) Attr(name string) ([]byte, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

// clone makes a shallow, non-finalised copy of t: a new entries slice and
// index, sharing the child Objects themselves (structural sharing).
func (t *Tree) clone() *Tree {
	cp := &Tree{
		entries: make([]TreeEntry, len(t.entries)),
		byName:  make(map[string]int, len(t.byName)),
		attrs:   cloneAttrs(t.attrs),
	}
	copy(cp.entries, t.entries)
	for k, v := range t.byName {
		cp.byName[k] = v
	}
	return cp
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func normalizeMode(obj Object, mode FileMode) FileMode {
	if mode != 0 {
		return mode
	}
	if obj.IsDir() {
		return ModeDir
	}
	return ModeRegular
}

// Set returns a new tree with obj inserted (or replacing an existing entry)
// at path, creating intermediate directories as needed. If the existing
// leaf's hash and mode already equal the new value, Set returns the
// receiver unchanged (spec.md §4.1).
func (t *Tree) Set(path string, obj Object, mode FileMode) *Tree {
	segs := splitPath(path)
	if len(segs) == 0 {
		return t
	}
	return t.setAt(segs, obj, mode)
}

func (t *Tree) setAt(segs []string, obj Object, mode FileMode) *Tree {
	name := segs[0]
	if len(segs) == 1 {
		mode = normalizeMode(obj, mode)
		if existing, ok := t.Get(name); ok && existing.Object.Hash() == obj.Hash() && existing.Mode == mode {
			return t
		}
		cp := t.clone()
		entry := TreeEntry{Name: name, Object: obj, Mode: mode}
		if i, ok := cp.byName[name]; ok {
			cp.entries[i] = entry
		} else {
			cp.byName[name] = len(cp.entries)
			cp.entries = append(cp.entries, entry)
		}
		return cp
	}

	var childTree *Tree
	if existing, ok := t.Get(name); ok {
		if et, ok := existing.Object.(*Tree); ok {
			childTree = et
		} else {
			// A file sits where a directory is required: replace it.
			childTree = NewTree()
		}
	} else {
		childTree = NewTree()
	}
	newChild := childTree.setAt(segs[1:], obj, mode)
	if existing, ok := t.Get(name); ok && existing.Object == Object(newChild) {
		return t
	}
	cp := t.clone()
	entry := TreeEntry{Name: name, Object: newChild, Mode: ModeDir}
	if i, ok := cp.byName[name]; ok {
		cp.entries[i] = entry
	} else {
		cp.byName[name] = len(cp.entries)
		cp.entries = append(cp.entries, entry)
	}
	return cp
}

// Delete returns a new tree with path removed, sharing every unaffected
// subtree with the receiver. It returns a PathNotFoundError if path does
// not exist.
func (t *Tree) Delete(path string) (*Tree, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, &PathNotFoundError{Path: path}
	}
	out, err := t.deleteAt(segs, path)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) deleteAt(segs []string, fullPath string) (*Tree, error) {
	name := segs[0]
	existing, ok := t.Get(name)
	if !ok {
		return nil, &PathNotFoundError{Path: fullPath}
	}
	cp := t.clone()
	if len(segs) == 1 {
		i := cp.byName[name]
		cp.entries = append(cp.entries[:i], cp.entries[i+1:]...)
		delete(cp.byName, name)
		for k, v := range cp.byName {
			if v > i {
				cp.byName[k] = v - 1
			}
		}
		return cp, nil
	}
	childTree, ok := existing.Object.(*Tree)
	if !ok {
		return nil, &WrongKindError{Path: fullPath, Want: "directory"}
	}
	newChild, err := childTree.deleteAt(segs[1:], fullPath)
	if err != nil {
		return nil, err
	}
	i := cp.byName[name]
	cp.entries[i] = TreeEntry{Name: name, Object: newChild, Mode: ModeDir}
	return cp, nil
}

// FindPath resolves path against t, descending through child trees.
func (t *Tree) FindPath(path string) (Object, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return t, true
	}
	return t.findAt(segs)
}

func (t *Tree) findAt(segs []string) (Object, bool) {
	entry, ok := t.Get(segs[0])
	if !ok {
		return nil, false
	}
	if len(segs) == 1 {
		return entry.Object, true
	}
	childTree, ok := entry.Object.(*Tree)
	if !ok {
		return nil, false
	}
	return childTree.findAt(segs[1:])
}

// sortEntries sorts t's entries by name in place and rebuilds the index.
func (t *Tree) sortEntries() {
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Name < t.entries[j].Name })
	for i, e := range t.entries {
		t.byName[e.Name] = i
	}
}

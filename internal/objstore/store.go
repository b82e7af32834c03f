package objstore

// Store is the content-addressed object arena of spec.md §4.1: it owns
// every finalised Blob and Tree, deduplicating by structural hash. Per
// spec.md §5, the Store is mutated exclusively by the scheduler's main
// thread; it carries no internal locking.
type Store struct {
	byHash map[Hash]Object
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byHash: make(map[Hash]Object)}
}

// MakeBlob returns a non-finalised Blob wrapping data.
func (s *Store) MakeBlob(data []byte) *Blob {
	return NewBlob(data)
}

// Finalize computes obj's structural hash (recursively, for trees),
// inserts it into the dedup map, and returns the canonical instance for
// that hash — which is obj itself the first time a given hash is seen, and
// the previously-finalised instance on every subsequent call (spec.md §4.1,
// §8 "Idempotent finalisation").
func (s *Store) Finalize(obj Object) Object {
	switch v := obj.(type) {
	case *Blob:
		return s.finalizeBlob(v)
	case *Tree:
		return s.finalizeTree(v)
	default:
		panic("objstore: unknown object kind")
	}
}

func (s *Store) finalizeBlob(b *Blob) *Blob {
	if b.finalized {
		return b
	}
	if existing, ok := s.byHash[b.hash]; ok {
		return existing.(*Blob)
	}
	b.finalized = true
	s.byHash[b.hash] = b
	return b
}

func (s *Store) finalizeTree(t *Tree) *Tree {
	if t.finalized {
		return t
	}
	for i, e := range t.entries {
		switch child := e.Object.(type) {
		case *Tree:
			t.entries[i].Object = s.finalizeTree(child)
		case *Blob:
			t.entries[i].Object = s.finalizeBlob(child)
		}
	}
	t.sortEntries()
	h := s.computeTreeHash(t)
	t.hash = h
	if existing, ok := s.byHash[h]; ok {
		return existing.(*Tree)
	}
	t.finalized = true
	s.byHash[h] = t
	return t
}

// computeTreeHash implements spec.md §3's structural tree hash: a fixed
// "TREE\n" prefix, each entry's "ITEM: <name>\n" plus its child's hash, and
// sorted attribute lines, over name-sorted entries.
func (s *Store) computeTreeHash(t *Tree) Hash {
	h := newHasher()
	h.WriteString("TREE\n")
	for _, e := range t.entries {
		h.WriteString("ITEM: ")
		h.WriteString(e.Name)
		h.WriteString("\n")
		childHash := e.Object.Hash()
		h.Write(childHash[:])
	}
	for _, name := range sortedAttrNames(t.attrs) {
		h.WriteString("ATTR: ")
		h.WriteString(name)
		h.WriteString("=")
		h.Write(t.attrs[name])
		h.WriteString("\n")
	}
	return h.Sum()
}

// Get returns the finalised object with the given hash, if the store has
// seen it.
func (s *Store) Get(hash Hash) (Object, bool) {
	v, ok := s.byHash[hash]
	return v, ok
}

// Size returns the number of distinct finalised objects in the store.
func (s *Store) Size() int {
	return len(s.byHash)
}

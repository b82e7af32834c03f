package objstore

import "sort"

// FileMode is a Git-compatible file mode. Zero means "unspecified", which
// Tree.Set normalises to ModeRegular for blobs and ModeDir for trees.
type FileMode uint32

const (
	ModeRegular    FileMode = 0o100644
	ModeExecutable FileMode = 0o100755
	ModeSymlink    FileMode = 0o120000
	ModeDir        FileMode = 0o040000
)

// Object is the common interface of Blob and Tree: anything the content
// store can finalise and deduplicate by structural hash.
type Object interface {
	// Hash returns the object's structural content hash. Calling Hash on a
	// non-finalised Tree is a programmer error (see Finalized).
	Hash() Hash
	// Finalized reports whether the object's hash is fixed and the object
	// has been inserted into a Store's dedup map.
	Finalized() bool
	// IsDir reports whether the object is a Tree.
	IsDir() bool
}

// Blob is immutable byte content plus a set of Git attribute strings. Its
// content hash is its structural identity; GitSHA1 is a separate,
// optionally-populated field produced later by formatting and
// `git hash-object` (spec.md §3: "not part of the blob's structural
// identity").
type Blob struct {
	data      []byte
	hash      Hash
	attrs     map[string][]byte
	gitSHA1   string
	finalized bool
}

// NewBlob returns a non-finalised Blob wrapping data. Use Store.Finalize to
// finalise it.
func NewBlob(data []byte) *Blob {
	return &Blob{data: bytes(data), hash: HashBytes(data)}
}

func bytes(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

// Data returns the blob's content.
func (b *Blob) Data() []byte { return b.data }

// Hash implements Object.
func (b *Blob) Hash() Hash { return b.hash }

// Finalized implements Object.
func (b *Blob) Finalized() bool { return b.finalized }

// IsDir implements Object.
func (b *Blob) IsDir() bool { return false }

// Attr returns the named git attribute, if set.
func (b *Blob) Attr(name string) ([]byte, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// WithAttrs returns a copy of b carrying the given attribute map. Blobs are
// immutable once constructed, so attribute changes always produce a new
// instance with a fresh (unfinalised) identity check against the store.
func (b *Blob) WithAttrs(attrs map[string][]byte) *Blob {
	cp := &Blob{data: b.data, hash: b.hash, attrs: cloneAttrs(attrs)}
	return cp
}

// GitSHA1 returns the post-formatting, attribute-aware hash produced by
// `git hash-object`, if it has been computed.
func (b *Blob) GitSHA1() (string, bool) {
	return b.gitSHA1, b.gitSHA1 != ""
}

// WithGitSHA1 returns a copy of b with GitSHA1 populated. This does not
// affect Hash(): the Git hash is explicitly outside the blob's structural
// identity (spec.md §3).
func (b *Blob) WithGitSHA1(sha1hex string) *Blob {
	cp := *b
	cp.gitSHA1 = sha1hex
	return &cp
}

func cloneAttrs(attrs map[string][]byte) map[string][]byte {
	if attrs == nil {
		return nil
	}
	out := make(map[string][]byte, len(attrs))
	for k, v := range attrs {
		out[k] = bytes(v)
	}
	return out
}

// sortedAttrNames returns attrs' keys sorted, for deterministic hashing and
// serialisation.
func sortedAttrNames(attrs map[string][]byte) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

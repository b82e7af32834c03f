// Package objstore implements the content-addressed tree model of
// spec.md §3-§4.1: immutable blobs and trees with structural sharing,
// deterministic hashing, deduplicated finalisation, and ordered subtree
// diffing. The hashing scheme follows spec.md §3 exactly: it is a
// structural hash over object shape, independent of the Git object hash
// (Blob.GitSHA1, produced via internal/gitdriver), which is computed separately
// once formatting and .gitattributes are known.
package objstore

import (
	"crypto/sha1" //nolint:gosec // mandated by spec.md §3: structural content hash, not a security boundary
	"encoding/hex"
)

// Hash is a raw 20-byte SHA-1 digest, matching spec.md §3's "raw SHA-1 of
// bytes" content hash. SHA-1 is not a swappable concern here: it is a
// structural requirement for content addressing semantics compatible with
// the Git objects this system ultimately writes (see DESIGN.md).
type Hash [20]byte

// ZeroHash is the hash of no content.
var ZeroHash Hash

// String renders h as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// HashBytes returns the content hash of data.
func HashBytes(data []byte) Hash {
	return Hash(sha1.Sum(data)) //nolint:gosec
}

// newHasher returns a fresh structural hasher, used by Tree.computeHash.
func newHasher() *sha1Hasher {
	h := sha1.New() //nolint:gosec
	return &sha1Hasher{h}
}

type sha1Hasher struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
}

func (s *sha1Hasher) WriteString(str string) {
	_, _ = s.h.Write([]byte(str))
}

func (s *sha1Hasher) Write(b []byte) {
	_, _ = s.h.Write(b)
}

func (s *sha1Hasher) Sum() Hash {
	var out Hash
	copy(out[:], s.h.Sum(nil))
	return out
}

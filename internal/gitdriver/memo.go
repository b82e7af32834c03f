package gitdriver

import (
	"context"
	"encoding/hex"

	"crypto/sha1" //nolint:gosec // key derivation, not a security boundary

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// PersistentMap is the interface internal/sha1cache's text-backed map
// satisfies; kept narrow here so gitdriver does not import the persistence
// package directly.
type PersistentMap interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoKey derives the blob hash-object memoisation key of spec.md §4.4: a
// SHA-1 over raw content hash, gitattributes hash, optional formatter hash
// and tag, and path.
func MemoKey(rawSHA1, gitattrsSHA1 [20]byte, formatterSHA1 *[20]byte, formatterTag, path string) string {
	h := sha1.New() //nolint:gosec
	h.Write(rawSHA1[:])
	h.Write(gitattrsSHA1[:])
	if formatterSHA1 != nil {
		h.Write(formatterSHA1[:])
		h.Write([]byte(formatterTag))
	}
	h.Write([]byte(path))
	return hex.EncodeToString(h.Sum(nil))
}

// HashMemo fronts the persisted SHA-1 cache file (internal/sha1cache) with
// an in-process ristretto cache, and collapses concurrent identical lookups
// with singleflight — both of which matter because the bounded hashing pool
// of spec.md §4.10 can race many "same file touched on many branches"
// lookups against the same memo key within a single run.
type HashMemo struct {
	persistent PersistentMap
	hot        *ristretto.Cache[string, string]
	group      singleflight.Group
}

// NewHashMemo wraps persistent with an in-process hot cache, shared across
// every blob hashed during a run.
func NewHashMemo(persistent PersistentMap) (*HashMemo, error) {
	hot, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &HashMemo{persistent: persistent, hot: hot}, nil
}

// Get returns the memoised git OID for key, invoking compute (at most once
// across concurrent callers, via singleflight) on a miss. compute captures
// whatever blob bytes and formatting settings key was derived from.
func (m *HashMemo) Get(ctx context.Context, key string, compute func(ctx context.Context) (string, error)) (string, error) {
	if v, ok := m.hot.Get(key); ok {
		return v, nil
	}
	if v, ok := m.persistent.Get(key); ok {
		m.hot.Set(key, v, int64(len(v)))
		return v, nil
	}
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		result, err := compute(ctx)
		if err != nil {
			return "", err
		}
		m.persistent.Set(key, result)
		m.hot.Set(key, result, int64(len(result)))
		return result, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Close releases the in-process cache's background goroutines.
func (m *HashMemo) Close() {
	m.hot.Close()
}

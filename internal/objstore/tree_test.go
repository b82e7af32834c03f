package objstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalize(t *testing.T, s *Store, tr *Tree) *Tree {
	t.Helper()
	return s.Finalize(tr).(*Tree)
}

func TestSetGetFindPath(t *testing.T) {
	s := NewStore()
	tr := NewTree()
	b := s.MakeBlob([]byte("x"))
	tr = tr.Set("a/f", b, 0)
	tr = finalize(t, s, tr)

	obj, ok := tr.FindPath("a/f")
	require.True(t, ok)
	assert.Equal(t, b.Hash(), obj.Hash())

	_, ok = tr.FindPath("a/missing")
	assert.False(t, ok)
}

func TestSetNoOpReturnsSameInstance(t *testing.T) {
	s := NewStore()
	tr := NewTree()
	b := s.MakeBlob([]byte("x"))
	tr = finalize(t, s, tr.Set("a/f", b, 0))

	again := tr.Set("a/f", b, 0)
	assert.Same(t, tr, again)
}

func TestDeleteMissingPathFails(t *testing.T) {
	tr := NewTree()
	_, err := tr.Delete("nope")
	require.Error(t, err)
	var pnf *PathNotFoundError
	assert.ErrorAs(t, err, &pnf)
}

func TestStructuralSharingOnSet(t *testing.T) {
	s := NewStore()
	base := NewTree()
	base = base.Set("a/f1", s.MakeBlob([]byte("1")), 0)
	base = base.Set("b/f2", s.MakeBlob([]byte("2")), 0)
	base = finalize(t, s, base)

	aEntry, ok := base.Get("a")
	require.True(t, ok)

	changed := base.Set("b/f2", s.MakeBlob([]byte("3")), 0)
	changed = finalize(t, s, changed)

	changedAEntry, ok := changed.Get("a")
	require.True(t, ok)
	// "a" subtree untouched by the "b/f2" change shares the same instance.
	assert.Same(t, aEntry.Object, changedAEntry.Object)
}

func TestHashPurity(t *testing.T) {
	s := NewStore()
	tr := NewTree()
	tr = tr.Set("a/f", s.MakeBlob([]byte("x")), 0)
	tr = finalize(t, s, tr)
	h1 := tr.Hash()

	tr2 := tr.Set("a/f", s.MakeBlob([]byte("y")), 0)
	tr2 = finalize(t, s, tr2)
	assert.NotEqual(t, h1, tr2.Hash())
}

func TestIdempotentFinalize(t *testing.T) {
	s := NewStore()
	tr := NewTree().Set("a", s.MakeBlob([]byte("x")), 0)
	f1 := s.Finalize(tr)
	f2 := s.Finalize(f1)
	assert.Same(t, f1, f2)
}

func TestFinalizeDedupesEqualTrees(t *testing.T) {
	s := NewStore()
	t1 := finalize(t, s, NewTree().Set("a", s.MakeBlob([]byte("x")), 0))
	t2 := finalize(t, s, NewTree().Set("a", s.MakeBlob([]byte("x")), 0))
	assert.Same(t, t1, t2)
}

func TestCompareSymmetry(t *testing.T) {
	s := NewStore()
	a := finalize(t, s, NewTree().
		Set("f1", s.MakeBlob([]byte("1")), 0).
		Set("f2", s.MakeBlob([]byte("2")), 0))
	b := finalize(t, s, NewTree().
		Set("f1", s.MakeBlob([]byte("1-changed")), 0).
		Set("f3", s.MakeBlob([]byte("3")), 0))

	ab, err := a.Compare(b, "", true)
	require.NoError(t, err)
	ba, err := b.Compare(a, "", true)
	require.NoError(t, err)
	require.Len(t, ab, len(ba))

	byPath := map[string]DiffEntry{}
	for _, e := range ba {
		byPath[e.Path] = e
	}
	for _, e := range ab {
		swapped, ok := byPath[e.Path]
		require.True(t, ok)
		assert.Equal(t, e.OldObject, swapped.NewObject)
		assert.Equal(t, e.NewObject, swapped.OldObject)
	}
}

func TestCompareDirVsFileCollisionEmitsDeleteThenAdd(t *testing.T) {
	s := NewStore()
	a := finalize(t, s, NewTree().Set("x/sub", s.MakeBlob([]byte("f")), 0))
	b := finalize(t, s, NewTree().Set("x", s.MakeBlob([]byte("now a file")), 0))

	diffs, err := a.Compare(b, "", true)
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.Nil(t, diffs[0].NewObject)
	assert.Nil(t, diffs[1].OldObject)
}

func TestCompareOnNonFinalizedFails(t *testing.T) {
	a := NewTree()
	b := NewTree()
	_, err := a.Compare(b, "", true)
	require.Error(t, err)
	var ise *InvalidStateError
	assert.ErrorAs(t, err, &ise)
}

func TestDifferenceMetricsSimilarity(t *testing.T) {
	s := NewStore()
	a := finalize(t, s, NewTree().
		Set("f1", s.MakeBlob([]byte("1")), 0).
		Set("f2", s.MakeBlob([]byte("2")), 0).
		Set("f3", s.MakeBlob([]byte("3")), 0))
	b := finalize(t, s, NewTree().
		Set("f1", s.MakeBlob([]byte("1")), 0).
		Set("f2", s.MakeBlob([]byte("2-changed")), 0).
		Set("f4", s.MakeBlob([]byte("4")), 0))

	m := a.GetDifferenceMetrics(b)
	assert.Equal(t, DifferenceMetrics{Identical: 1, Different: 1, Deleted: 1, Added: 1}, m)
	// added+deleted (2) is not strictly less than identical+different (2).
	assert.False(t, m.IsSimilarTo())
}

func TestDifferenceMetricsRecursesIntoMatchingDirectories(t *testing.T) {
	s := NewStore()
	a := finalize(t, s, NewTree().
		Set("top", s.MakeBlob([]byte("unchanged")), 0).
		Set("dir/a", s.MakeBlob([]byte("a")), 0).
		Set("dir/b", s.MakeBlob([]byte("b")), 0).
		Set("dir/c", s.MakeBlob([]byte("c")), 0))
	b := finalize(t, s, NewTree().
		Set("top", s.MakeBlob([]byte("unchanged")), 0).
		Set("dir/a", s.MakeBlob([]byte("a")), 0).
		Set("dir/b", s.MakeBlob([]byte("b-changed")), 0).
		Set("dir/d", s.MakeBlob([]byte("d")), 0))

	m := a.GetDifferenceMetrics(b)
	// "dir" itself is never counted; only its leaves are: a=identical,
	// b=different, c=deleted, d=added, plus top=identical.
	assert.Equal(t, DifferenceMetrics{Identical: 2, Different: 1, Deleted: 1, Added: 1}, m)
}

func TestDifferenceMetricsCountsEveryLeafOnDirVsFileCollision(t *testing.T) {
	s := NewStore()
	a := finalize(t, s, NewTree().Set("x/a", s.MakeBlob([]byte("a")), 0).Set("x/b", s.MakeBlob([]byte("b")), 0))
	b := finalize(t, s, NewTree().Set("x", s.MakeBlob([]byte("now a file")), 0))

	m := a.GetDifferenceMetrics(b)
	assert.Equal(t, DifferenceMetrics{Deleted: 2, Added: 1}, m)
}

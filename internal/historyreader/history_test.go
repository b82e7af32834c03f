package historyreader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/revstream"
)

func TestAddChangeDelete(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)

	r1, err := r.Apply(&revstream.Revision{
		RevOrdinal: 1,
		Nodes: []revstream.Node{
			{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "a/f", TextContent: []byte("x")},
		},
	})
	require.NoError(t, err)
	obj, ok := r1.Tree.FindPath("a/f")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), obj.(*objstore.Blob).Data())

	r2, err := r.Apply(&revstream.Revision{
		RevOrdinal: 2,
		Nodes: []revstream.Node{
			{Action: revstream.ActionChange, Kind: revstream.KindFile, Path: "a/f", TextContent: []byte("xy")},
		},
	})
	require.NoError(t, err)
	obj, _ = r2.Tree.FindPath("a/f")
	assert.Equal(t, []byte("xy"), obj.(*objstore.Blob).Data())

	r3, err := r.Apply(&revstream.Revision{
		RevOrdinal: 3,
		Nodes: []revstream.Node{
			{Action: revstream.ActionDelete, Kind: revstream.KindFile, Path: "a/f"},
		},
	})
	require.NoError(t, err)
	_, ok = r3.Tree.FindPath("a/f")
	assert.False(t, ok)
}

func TestDeleteMissingFails(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)
	_, err := r.Apply(&revstream.Revision{
		RevOrdinal: 1,
		Nodes:      []revstream.Node{{Action: revstream.ActionDelete, Path: "nope"}},
	})
	require.Error(t, err)
}

func TestCopyWithMergeHint(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)

	_, err := r.Apply(&revstream.Revision{RevOrdinal: 1, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "trunk/a", TextContent: []byte("x")},
	}})
	require.NoError(t, err)

	r2, err := r.Apply(&revstream.Revision{RevOrdinal: 2, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindDir, Path: "branches/b", CopyFromPath: "trunk", CopyFromRev: 1},
	}})
	require.NoError(t, err)
	obj, ok := r2.Tree.FindPath("branches/b/a")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), obj.(*objstore.Blob).Data())

	r3, err := r.Apply(&revstream.Revision{RevOrdinal: 3, Nodes: []revstream.Node{
		{Action: revstream.ActionChange, Kind: revstream.KindFile, Path: "trunk/a", TextContent: []byte("x1")},
	}})
	require.NoError(t, err)

	r4, err := r.Apply(&revstream.Revision{RevOrdinal: 4, Nodes: []revstream.Node{
		{Action: revstream.ActionMerge, Path: "branches/b", CopyFromPath: "trunk", CopyFromRev: 3},
	}})
	require.NoError(t, err)
	require.Len(t, r4.PendingMerges, 1)
	assert.Equal(t, "branches/b", r4.PendingMerges[0].TargetPath)
	assert.Equal(t, 3, r4.PendingMerges[0].SourceRevOrdinal)
	_ = r3
}

func TestCopySourceNotFoundWithoutInlineContent(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)
	_, err := r.Apply(&revstream.Revision{RevOrdinal: 1, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "a/new", CopyFromPath: "a/missing", CopyFromRev: 1},
	}})
	require.Error(t, err)
	var ne *NodeError
	require.True(t, errors.As(err, &ne))
	var csnf *CopySourceNotFoundError
	assert.True(t, errors.As(ne.Err, &csnf))
}

func TestAddOntoExistingPathFails(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)
	_, err := r.Apply(&revstream.Revision{RevOrdinal: 1, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "a/f", TextContent: []byte("x")},
	}})
	require.NoError(t, err)

	_, err = r.Apply(&revstream.Revision{RevOrdinal: 2, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "a/f", TextContent: []byte("y")},
	}})
	require.Error(t, err)
	var ne *NodeError
	require.True(t, errors.As(err, &ne))
	var exists *objstore.PathAlreadyExistsError
	assert.True(t, errors.As(ne.Err, &exists))
}

func TestCopyOntoExistingPathFails(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)
	_, err := r.Apply(&revstream.Revision{RevOrdinal: 1, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "src", TextContent: []byte("x")},
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "dst", TextContent: []byte("y")},
	}})
	require.NoError(t, err)

	_, err = r.Apply(&revstream.Revision{RevOrdinal: 2, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "dst", CopyFromPath: "src", CopyFromRev: 1},
	}})
	require.Error(t, err)
	var ne *NodeError
	require.True(t, errors.As(err, &ne))
	var exists *objstore.PathAlreadyExistsError
	assert.True(t, errors.As(ne.Err, &exists))
}

func TestLabelDoesNotChangeTree(t *testing.T) {
	store := objstore.NewStore()
	r := New(store, nil)
	r1, err := r.Apply(&revstream.Revision{RevOrdinal: 1, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindFile, Path: "a/f", TextContent: []byte("x")},
	}})
	require.NoError(t, err)

	r2, err := r.Apply(&revstream.Revision{RevOrdinal: 2, Nodes: []revstream.Node{
		{Action: revstream.ActionLabel, Path: "a", Label: "v1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, r1.Tree.Hash(), r2.Tree.Hash())
	require.Len(t, r2.Labels, 1)
	assert.Equal(t, "v1", r2.Labels[0].Label)
}

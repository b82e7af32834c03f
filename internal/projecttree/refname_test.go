package projecttree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFirstWantSucceeds(t *testing.T) {
	a := NewRefAllocator()
	got, err := a.Allocate("branches/foo", "refs/heads/foo")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/foo", got)
}

func TestAllocateRemapsOnTerminalCollision(t *testing.T) {
	a := NewRefAllocator()
	_, err := a.Allocate("branches/foo", "refs/heads/foo")
	require.NoError(t, err)

	got, err := a.Allocate("branches/bar", "refs/heads/foo")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/foo___1", got)
}

func TestAllocateRejectsNonTerminalSegmentCollision(t *testing.T) {
	a := NewRefAllocator()
	_, err := a.Allocate("branches/foo", "refs/heads/foo")
	require.NoError(t, err)

	_, err = a.Allocate("branches/foo/child", "refs/heads/foo/child")
	require.Error(t, err)
	var conflict *RefnameConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAllocateGivesUpAfterExhaustingSuffixes(t *testing.T) {
	a := NewRefAllocator()
	_, err := a.Allocate("owner-base", "refs/heads/x")
	require.NoError(t, err)
	for n := 1; n <= 99; n++ {
		_, err := a.Allocate("owner", "refs/heads/x")
		require.NoError(t, err)
	}
	got, err := a.Allocate("owner-final", "refs/heads/x")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

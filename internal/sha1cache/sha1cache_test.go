package sha1cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.map"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestSetGetAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sha1.map")
	c, err := Load(path)
	require.NoError(t, err)
	c.Set("aaaa", "bbbb")
	assert.True(t, c.Dirty())
	require.NoError(t, c.Save(path))

	c2, err := Load(path)
	require.NoError(t, err)
	v, ok := c2.Get("aaaa")
	require.True(t, ok)
	assert.Equal(t, "bbbb", v)
}

func TestSetSameValueNotDirty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "x.map"))
	require.NoError(t, err)
	c.Set("k", "v")
	require.NoError(t, err)
	_ = c.Dirty()
	c2, _ := Load(filepath.Join(t.TempDir(), "y.map"))
	c2.entries["k"] = "v"
	c2.Set("k", "v")
	assert.False(t, c2.Dirty())
}

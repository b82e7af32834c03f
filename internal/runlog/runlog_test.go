package runlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vss2git/vss2git/internal/scheduler"
)

func TestWriteSectionAppendsHeaderAndBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.WriteSection("rev 1", "added a/f"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== rev 1 ===")
	assert.Contains(t, string(data), "added a/f")
}

func TestOpenArchivesExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.WriteSection("rev 1", "first run"))
	require.NoError(t, l.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l2.WriteSection("rev 1", "second run"))
	require.NoError(t, l2.Close())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var archived bool
	for _, e := range entries {
		if e.Name() != "run.log" {
			archived = true
		}
	}
	assert.True(t, archived)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "second run")
	assert.NotContains(t, string(data), "first run")
}

func TestSerializerOrdersWritesByEnqueueChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	exec := scheduler.New()
	s := NewSerializer(l, exec)
	require.NoError(t, s.Enqueue("rev 1", "a"))
	require.NoError(t, s.Enqueue("rev 2", "b"))
	require.NoError(t, exec.Drain())

	require.NoError(t, l.w.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	aIdx := indexOf(string(data), "rev 1")
	bIdx := indexOf(string(data), "rev 2")
	assert.Less(t, aIdx, bIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

package revstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"rev_id":"1","rev_ordinal":1,"author":"alice","datetime":1000,"log":"first","nodes":[{"action":"add","kind":"file","path":"a/f","text_content":"eA=="}]}
{"rev_id":"2","rev_ordinal":2,"author":"bob","datetime":2000,"log":"second","nodes":[{"action":"delete","kind":"file","path":"a/f"}]}
`

func TestJSONLReaderParsesRevisionsInOrder(t *testing.T) {
	r := NewJSONLReader(strings.NewReader(sample))
	defer r.Close()

	rev1, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rev1)
	assert.Equal(t, 1, rev1.RevOrdinal)
	assert.Equal(t, "alice", rev1.Author)
	require.Len(t, rev1.Nodes, 1)
	assert.Equal(t, ActionAdd, rev1.Nodes[0].Action)
	assert.Equal(t, "x", string(rev1.Nodes[0].TextContent))

	rev2, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rev2)
	assert.Equal(t, ActionDelete, rev2.Nodes[0].Action)

	end, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, end)
}

func TestJSONLReaderSkipsBlankLines(t *testing.T) {
	r := NewJSONLReader(strings.NewReader("\n" + sample))
	defer r.Close()
	rev1, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rev1)
	assert.Equal(t, 1, rev1.RevOrdinal)
}

func TestJSONLReaderMalformedLineErrors(t *testing.T) {
	r := NewJSONLReader(strings.NewReader("not json\n"))
	defer r.Close()
	_, err := r.Next()
	assert.Error(t, err)
}

package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLinesPreservesEOLStyle(t *testing.T) {
	lines, missing := SplitLines([]byte("a\r\nb\nc"))
	require.Len(t, lines, 3)
	assert.Equal(t, "\r\n", lines[0].EOL)
	assert.Equal(t, "\n", lines[1].EOL)
	assert.Equal(t, "", lines[2].EOL)
	assert.True(t, missing)
}

func TestSplitLinesNoFinalEOLMissingFalseWhenPresent(t *testing.T) {
	_, missing := SplitLines([]byte("a\n"))
	assert.False(t, missing)
}

func TestSplitOneSeparatesLeadingBodyTrailing(t *testing.T) {
	l := splitOne("\t\t  foo(bar);   ", "\n")
	assert.Equal(t, "\t\t  ", l.Leading)
	assert.Equal(t, "foo(bar);", l.Body)
	assert.Equal(t, "   ", l.Trailing)
}

func TestIndentWidthExpandsTabs(t *testing.T) {
	l := Line{Leading: "\t "}
	assert.Equal(t, 9, l.IndentWidth(8))
}

func TestRebuildBlankLineKeepsOnlyTrailingAndEOL(t *testing.T) {
	l := Line{Body: "", Trailing: "", EOL: "\n"}
	assert.Equal(t, "\n", l.Rebuild(4, false, 8))
}

func TestRebuildWithTabsAndSpaces(t *testing.T) {
	l := Line{Body: "x;", EOL: "\n"}
	assert.Equal(t, "\t\t  x;\n", l.Rebuild(18, true, 8))
}

func TestOriginalRoundTrips(t *testing.T) {
	raw := "  foo();  \n"
	lines, _ := SplitLines([]byte(raw))
	assert.Equal(t, raw, lines[0].Original())
}

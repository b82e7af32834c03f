// Package formatter implements the deterministic C/C++ reindenter of
// spec.md §4.9: given identical input bytes, format settings, and a
// path-dependent attribute tag, it produces byte-identical output, which
// is what lets internal/gitdriver's memoised hashing cache key on the
// formatter's settings instead of re-running it.
package formatter

import "strings"

// Line is one physical source line split into its indent-relevant parts,
// following spec.md §4.9 "Line splitter": {leading_whitespace, body,
// trailing, eol}.
type Line struct {
	Leading  string // run of leading tabs/spaces
	Body     string // content with trailing whitespace stripped
	Trailing string // trailing whitespace before eol, preserved verbatim
	EOL      string // "\n", "\r\n", or "" for a missing final newline
}

// SplitLines parses data into Lines, one per physical line, preserving
// each line's original EOL style and reporting (via the returned bool) a
// missing final EOL. In that case the last Line's EOL is "", so
// re-emitting the Lines reproduces the missing newline byte-for-byte.
func SplitLines(data []byte) (lines []Line, missingFinalEOL bool) {
	s := string(data)
	for len(s) > 0 {
		idx := strings.IndexByte(s, '\n')
		var raw, eol string
		if idx < 0 {
			raw = s
			eol = ""
			s = ""
			missingFinalEOL = true
		} else {
			raw = s[:idx]
			eol = "\n"
			if strings.HasSuffix(raw, "\r") {
				raw = raw[:len(raw)-1]
				eol = "\r\n"
			}
			s = s[idx+1:]
		}
		lines = append(lines, splitOne(raw, eol))
	}
	return lines, missingFinalEOL
}

func splitOne(raw, eol string) Line {
	i := 0
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t') {
		i++
	}
	leading := raw[:i]
	rest := raw[i:]
	j := len(rest)
	for j > 0 && (rest[j-1] == ' ' || rest[j-1] == '\t') {
		j--
	}
	return Line{Leading: leading, Body: rest[:j], Trailing: rest[j:], EOL: eol}
}

// IndentWidth reports the visual column width of l's leading whitespace
// for a given tab size, used by "retab-only" mode, by lines left unretabbed,
// and by the block-comment shift. The "extend" continuation policy does not
// use it: extend indents to the opener's column plus one indent step,
// whatever the line's current whitespace width.
func (l Line) IndentWidth(tabSize int) int {
	width := 0
	for _, c := range l.Leading {
		if c == '\t' {
			width += tabSize - (width % tabSize)
		} else {
			width++
		}
	}
	return width
}

// Rebuild re-emits l with a new indent column, re-materialised as tabs
// and/or spaces per useTabs/tabSize (spec.md §4.9 "Tabs/spaces output").
func (l Line) Rebuild(column int, useTabs bool, tabSize int) string {
	if l.Body == "" {
		return l.Trailing + l.EOL
	}
	var b strings.Builder
	if useTabs {
		b.WriteString(strings.Repeat("\t", column/tabSize))
		b.WriteString(strings.Repeat(" ", column%tabSize))
	} else {
		b.WriteString(strings.Repeat(" ", column))
	}
	b.WriteString(l.Body)
	b.WriteString(l.Trailing)
	b.WriteString(l.EOL)
	return b.String()
}

// Original re-emits l exactly as split, used by the fail-safe and
// retab-disabled paths.
func (l Line) Original() string {
	return l.Leading + l.Body + l.Trailing + l.EOL
}

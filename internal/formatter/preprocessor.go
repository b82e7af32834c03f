package formatter

import "strings"

// ppSnapshot captures the full parser state at a `#if`/`#ifdef`/`#ifndef`
// directive so `#else`/`#elif` can restore it before re-entering the
// alternate branch, and `#endif` can check the branches converged
// (spec.md §4.9 "Preprocessor handling").
type ppSnapshot struct {
	blockDepth int
	exprStack  ExprStack
	blocks     BlockStack
	ignoreDiff bool // "#if 0" / "#if 1" / "#if __cplusplus": don't flag mismatches
}

type ppStack struct {
	frames []ppSnapshot
}

func (p *ppStack) push(s ppSnapshot) { p.frames = append(p.frames, s) }

func (p *ppStack) pop() (ppSnapshot, bool) {
	if len(p.frames) == 0 {
		return ppSnapshot{}, false
	}
	s := p.frames[len(p.frames)-1]
	p.frames = p.frames[:len(p.frames)-1]
	return s, true
}

func (p *ppStack) top() (ppSnapshot, bool) {
	if len(p.frames) == 0 {
		return ppSnapshot{}, false
	}
	return p.frames[len(p.frames)-1], true
}

// classifyPreproc identifies the directive keyword of a `#...` token's
// text, ignoring leading whitespace after the `#`.
func classifyPreproc(text string) string {
	body := strings.TrimPrefix(text, "#")
	body = strings.TrimLeft(body, " \t")
	end := 0
	for end < len(body) && (isIdentPart(body[end])) {
		end++
	}
	return body[:end]
}

// ignoresNestingChange reports the spec's "#if __cplusplus, #if 0, #if 1"
// special case: these conditionals commonly wrap mutually-exclusive
// declarations of identical shape, so a depth mismatch across branches is
// not a formatting error.
func ignoresNestingChange(directive, text string) bool {
	if directive != "if" {
		return false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimLeft(strings.TrimPrefix(text, "#"), " \t"), "if"))
	return rest == "0" || rest == "1" || rest == "__cplusplus" || strings.Contains(rest, "__cplusplus")
}

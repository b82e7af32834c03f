package formatter

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Continuation selects how a line continuing an open bracket or an
// unterminated statement is indented (spec.md §4.9 "Continuation indent
// policy").
type Continuation string

const (
	ContinuationNone  Continuation = "none"
	ContinuationSmart Continuation = "smart"
	ContinuationExtend Continuation = "extend"
)

// Settings mirrors one config.FormatSpec's reindentation knobs.
type Settings struct {
	UseTabs       bool
	TabSize       int
	IndentSize    int
	Continuation  Continuation
	MaxToParen    int
	RetabOnly     bool
	ReformatLine  bool
	ReformatBlock bool
}

func (s Settings) normalized() Settings {
	if s.TabSize <= 0 {
		s.TabSize = 8
	}
	if s.IndentSize <= 0 {
		s.IndentSize = 4
	}
	if s.MaxToParen <= 0 {
		s.MaxToParen = 120
	}
	if s.Continuation == "" {
		s.Continuation = ContinuationSmart
	}
	return s
}

// Format reindents src per settings, returning byte-identical output for
// byte-identical (src, settings) pairs (spec.md §4.9's determinism
// contract). A parser failure on any single logical line falls back to
// that line's original text (LINE_INDENT_KEEP_CURRENT_NO_RETAB) rather
// than failing the whole file.
func Format(src []byte, settings Settings) []byte {
	settings = settings.normalized()
	lines, _ := SplitLines(src)
	if settings.RetabOnly {
		return retabOnly(lines, settings)
	}

	st := newIndenter(settings)
	var out strings.Builder
	i := 0
	for i < len(lines) {
		consumed := st.renderOne(lines, i, &out)
		if consumed < 1 {
			consumed = 1
		}
		i += consumed
	}
	return []byte(out.String())
}

// retabOnly re-emits each line's existing logical indent width in the
// requested tabs/spaces style without tokenising (spec.md §4.9
// "Retab-only mode").
func retabOnly(lines []Line, settings Settings) []byte {
	var out strings.Builder
	for _, l := range lines {
		width := l.IndentWidth(settings.TabSize)
		out.WriteString(l.Rebuild(width, settings.UseTabs, settings.TabSize))
	}
	return []byte(out.String())
}

// indenter holds the mutable parser state threaded across logical lines:
// the block stack, the expression stack, and the preprocessor snapshot
// stack (spec.md §4.9 "Parser state machine").
type indenter struct {
	settings Settings
	blocks   BlockStack
	exprs    ExprStack
	pp       ppStack

	pendingComposite   bool // last meaningful token opened an if/for/while/... header
	pendingIsSwitch    bool
	afterElse          bool

	inBlockComment    bool // a /* opened on a prior line hasn't been closed yet
	commentShiftDelta int  // indent delta applied to the comment's opening line, reused on its continuation lines
}

func newIndenter(settings Settings) *indenter {
	return &indenter{settings: settings}
}

// renderOne formats the logical line starting at physical index i,
// writing it (and any backslash-continued physical lines that belong to
// it) to out, and returns how many physical lines it consumed.
func (st *indenter) renderOne(lines []Line, i int, out *strings.Builder) (consumed int) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("formatter: recovered from parser panic, keeping original line: %v", r)
			out.WriteString(lines[i].Original())
			consumed = 1
		}
	}()

	if st.inBlockComment {
		st.renderBlockCommentContinuation(lines[i], out)
		return 1
	}

	group := []Line{lines[i]}
	for strings.HasSuffix(group[len(group)-1].Body, "\\") && i+len(group) < len(lines) {
		group = append(group, lines[i+len(group)])
	}

	joined := joinGroup(group)
	first := group[0]

	if strings.HasPrefix(strings.TrimLeft(first.Body, " \t"), "#") {
		st.renderPreprocessor(first, joined, out)
		for _, l := range group[1:] {
			out.WriteString(l.Original())
		}
		return len(group)
	}

	tokens, noRetab := Tokenize(joined)
	column := st.columnFor(joined)

	if noRetab {
		// A string or char literal sits on this line: leave its leading
		// whitespace untouched rather than risk misjudging the column
		// (spec.md §4.9 "flagged do not retab").
		out.WriteString(first.Original())
		column = first.IndentWidth(st.settings.TabSize)
	} else {
		out.WriteString(first.Rebuild(column, st.settings.UseTabs, st.settings.TabSize))
	}
	for _, l := range group[1:] {
		out.WriteString(l.Original()) // backslash continuations keep their original alignment
	}

	st.consumeTokens(tokens)
	if open := unterminatedBlockComment(tokens); open {
		st.inBlockComment = true
		st.commentShiftDelta = column - first.IndentWidth(st.settings.TabSize)
	}
	return len(group)
}

func joinGroup(group []Line) string {
	var b strings.Builder
	for idx, l := range group {
		b.WriteString(l.Body)
		if idx < len(group)-1 {
			b.WriteString(" ")
		}
	}
	return b.String()
}

// columnFor computes the indent column for the first physical line of a
// logical line, before its own tokens are consumed: continuation of an
// open bracket from a prior line takes priority over block-level
// indentation (spec.md §4.9 "Continuation indent policy").
func (st *indenter) columnFor(joined string) int {
	indentSize := st.settings.IndentSize
	if frame, ok := st.exprs.Top(); ok {
		return st.continuationColumn(frame)
	}

	trimmed := strings.TrimLeft(joined, " \t")
	depth := st.blocks.Depth()

	if strings.HasPrefix(trimmed, "}") {
		depth--
	}
	if st.blocks.InSwitch() && isCaseOrDefaultLabel(trimmed) {
		depth--
	} else if isPlainLabel(trimmed) {
		depth--
	}
	if depth < 0 {
		depth = 0
	}
	return depth * indentSize
}

func (st *indenter) continuationColumn(frame ExprFrame) int {
	switch st.settings.Continuation {
	case ContinuationNone:
		return frame.Column
	case ContinuationExtend:
		return frame.Column + st.settings.IndentSize
	default: // smart
		if frame.Column+1 <= st.settings.MaxToParen {
			return frame.Column + 1
		}
		return (st.blocks.Depth() + 1) * st.settings.IndentSize
	}
}

func isCaseOrDefaultLabel(s string) bool {
	return strings.HasPrefix(s, "case ") || strings.HasPrefix(s, "case\t") || strings.HasPrefix(s, "default:") || strings.HasPrefix(s, "default ")
}

func isPlainLabel(s string) bool {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 || idx+1 < len(s) && s[idx+1] == ':' {
		return false
	}
	name := s[:idx]
	for _, c := range name {
		if !(isIdentPart(byte(c)) || c == '_') {
			return false
		}
	}
	return true
}

// unterminatedBlockComment reports whether a logical line's last
// non-EOF token is a `/*` that never found its closing `*/`, meaning the
// comment body continues onto following physical lines (the gap
// Tokenize's single-line scan can't see across on its own).
func unterminatedBlockComment(tokens []Token) bool {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Kind == EOF {
			continue
		}
		return tokens[i].Kind == BLOCKCOMMENT && !strings.HasSuffix(tokens[i].Text, "*/")
	}
	return false
}

// renderBlockCommentContinuation emits one physical line that lies
// inside a still-open block comment. When ReformatBlock is set its
// leading whitespace is shifted by the same delta applied to the
// comment's opening line (spec.md §4.9 "leading whitespace of a
// continuing comment is adjusted by the same delta as the first line");
// otherwise the line is passed through unchanged.
func (st *indenter) renderBlockCommentContinuation(l Line, out *strings.Builder) {
	if st.settings.ReformatBlock {
		width := l.IndentWidth(st.settings.TabSize) + st.commentShiftDelta
		if width < 0 {
			width = 0
		}
		out.WriteString(l.Rebuild(width, st.settings.UseTabs, st.settings.TabSize))
	} else {
		out.WriteString(l.Original())
	}
	if strings.Contains(l.Body, "*/") {
		st.inBlockComment = false
	}
}

// consumeTokens updates blocks/exprs/pending-composite state from one
// logical line's token stream.
func (st *indenter) consumeTokens(tokens []Token) {
	for _, t := range tokens {
		switch t.Kind {
		case IF, FOR, WHILE, TRY, CATCH, NAMESPACE:
			st.pendingComposite = true
			st.pendingIsSwitch = false
		case SWITCH:
			st.pendingComposite = true
			st.pendingIsSwitch = true
		case ELSE, DO:
			st.pendingComposite = true
			st.pendingIsSwitch = false
			st.afterElse = true
		case LPAREN:
			st.exprs.Push(ExprFrame{Opener: LPAREN, Column: t.Column, IndentIncr: st.settings.IndentSize})
		case RPAREN:
			st.exprs.Pop()
		case LBRACKET:
			st.exprs.Push(ExprFrame{Opener: LBRACKET, Column: t.Column, IndentIncr: st.settings.IndentSize})
		case RBRACKET:
			st.exprs.Pop()
		case LBRACE:
			st.blocks.Push(BlockFrame{Composite: st.pendingComposite, SameLine: true, IsSwitch: st.pendingIsSwitch})
			st.pendingComposite = false
			st.pendingIsSwitch = false
		case RBRACE:
			st.blocks.Pop()
		case SEMI:
			st.pendingComposite = false
		}
	}
}

// renderPreprocessor re-indents a preprocessor directive to column zero
// (the overwhelmingly common C/C++ convention) and applies the
// snapshot/restore machinery of spec.md §4.9's "Preprocessor handling".
func (st *indenter) renderPreprocessor(first Line, joined string, out *strings.Builder) {
	out.WriteString(first.Rebuild(0, st.settings.UseTabs, st.settings.TabSize))

	text := strings.TrimLeft(joined, " \t")
	directive := classifyPreproc(text)
	switch directive {
	case "if", "ifdef", "ifndef":
		st.pp.push(ppSnapshot{
			blockDepth: st.blocks.Depth(),
			exprStack:  st.exprs.clone(),
			blocks:     st.blocks.clone(),
			ignoreDiff: ignoresNestingChange(directive, text),
		})
	case "else", "elif":
		if snap, ok := st.pp.top(); ok {
			st.blocks = snap.blocks.clone()
			st.exprs = snap.exprStack.clone()
		}
	case "endif":
		if snap, ok := st.pp.pop(); ok {
			if !snap.ignoreDiff && st.blocks.Depth() != snap.blockDepth {
				logrus.Warnf("formatter: mismatched brace nesting across #if/#endif branches (got %d, expected %d)",
					st.blocks.Depth(), snap.blockDepth)
			}
			st.blocks = snap.blocks.clone()
			st.exprs = snap.exprStack.clone()
		}
	}
}

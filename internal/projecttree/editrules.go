package projecttree

import (
	"regexp"

	"github.com/vss2git/vss2git/internal/config"
	"github.com/vss2git/vss2git/internal/ranges"
)

// compiledEditRule is one edit_msg_list entry compiled once per project
// (spec.md §4.6 "ordered regex substitutions over the log text").
type compiledEditRule struct {
	pattern     *regexp.Regexp
	replacement string
	maxCount    int
	terminal    bool
}

// CompileEditRules compiles rules in declaration order; a bad pattern is
// an InvalidConfig error.
func CompileEditRules(rules []config.EditMsgRule) ([]compiledEditRule, error) {
	out := make([]compiledEditRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &InvalidConfigError{Reason: "bad edit_msg pattern " + r.Pattern + ": " + err.Error()}
		}
		out = append(out, compiledEditRule{pattern: re, replacement: r.Replacement, maxCount: r.MaxCount, terminal: r.Terminal})
	}
	return out, nil
}

// ApplyEditRules runs every rule against log in order, stopping at the
// first terminal match (spec.md §4.6 "terminal-match flags").
func ApplyEditRules(rules []compiledEditRule, log string) string {
	for _, r := range rules {
		replaced, matched := replaceLimited(r.pattern, log, r.replacement, r.maxCount)
		log = replaced
		if matched && r.terminal {
			break
		}
	}
	return log
}

// replaceLimited replaces up to maxCount matches (all matches when
// maxCount <= 0), since regexp.ReplaceAllString has no count limit.
func replaceLimited(re *regexp.Regexp, s, replacement string, maxCount int) (string, bool) {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s, false
	}
	if maxCount > 0 && len(locs) > maxCount {
		locs = locs[:maxCount]
	}
	var out []byte
	last := 0
	for _, loc := range locs {
		out = append(out, s[last:loc[0]]...)
		out = re.ExpandString(out, replacement, s, loc)
		last = loc[1]
	}
	out = append(out, s[last:]...)
	return string(out), true
}

// skipCommitApplies resolves one SkipCommitRule's applicability to a given
// revision (by ordinal range or exact rev-id), per spec.md §4.6.
func skipCommitApplies(rule config.SkipCommitRule, revOrdinal int, revID string) bool {
	if rule.RevID != "" {
		return rule.RevID == revID
	}
	set, err := ranges.Parse(rule.RevRange)
	if err != nil {
		return false
	}
	return set.Contains(revOrdinal)
}

// SkipCommitDecision reports whether revOrdinal's commit should be
// deferred, and any configured replacement message.
func SkipCommitDecision(rules []config.SkipCommitRule, revOrdinal int, revID string) (skip bool, replaceWith string) {
	for _, r := range rules {
		if skipCommitApplies(r, revOrdinal, revID) {
			return true, r.ReplaceWith
		}
	}
	return false, ""
}

// Package projecttree is the largest component of spec.md §4: branch
// discovery via path mapping, per-revision processing, merge tracking,
// commit synthesis, label emission, and ref finalisation. It is the
// consumer that drives internal/historyreader, internal/objstore,
// internal/gitdriver and internal/scheduler together.
package projecttree

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/vss2git/vss2git/internal/config"
)

// compiledRule pairs a config.MapPathRule with its path-segment pattern.
// MapPath globs need capture groups (a "*" segment under "branches/*"
// must feed the branch name into the rule's refname template), which
// gobwas/glob does not expose; segmentMatch below is the hand-rolled
// piece this package owns for that reason (see DESIGN.md). Chmod and
// format globs have no such requirement and use gobwas/glob directly;
// ignore_files entries are regular expressions (see NewBranch).
type compiledRule struct {
	rule     config.MapPathRule
	segments []string
}

type compiledChmod struct {
	spec    config.ChmodSpec
	pattern glob.Glob
}

// Mapper resolves a directory path to a branch-mapping rule in
// declaration order (spec.md §4.3 "ordered globspec rules").
type Mapper struct {
	rules    []compiledRule
	chmods   []compiledChmod
	resolved map[string]*resolution
}

type resolution struct {
	rule     *config.MapPathRule
	refname  string // after {N} substitution
	captures []string
}

// NewMapper compiles every MapPathRule and ChmodSpec in proj, in
// declaration order. An invalid chmod glob is an InvalidConfig error
// (spec.md §7).
func NewMapper(proj config.ProjectConfig) (*Mapper, error) {
	m := &Mapper{resolved: map[string]*resolution{}}
	for _, r := range proj.MapPaths {
		m.rules = append(m.rules, compiledRule{rule: r, segments: strings.Split(strings.Trim(r.Glob, "/"), "/")})
	}
	for _, c := range proj.ChmodSpecs {
		g, err := glob.Compile(c.Glob, '/')
		if err != nil {
			return nil, &InvalidConfigError{Reason: fmt.Sprintf("bad chmod glob %q: %v", c.Glob, err)}
		}
		m.chmods = append(m.chmods, compiledChmod{spec: c, pattern: g})
	}
	return m, nil
}

// segmentMatch matches a "/"-segmented glob where "*" matches exactly one
// path segment, capturing it in declaration order. It does not support
// "**"; spec.md's globspecs are directory-level (trunk, branches/*,
// tags/*), which this covers.
func segmentMatch(patternSegs []string, path string) (ok bool, captures []string) {
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternSegs) != len(pathSegs) {
		return false, nil
	}
	for i, p := range patternSegs {
		if p == "*" {
			captures = append(captures, pathSegs[i])
			continue
		}
		if p != pathSegs[i] {
			return false, nil
		}
	}
	return true, captures
}

func applyCaptures(template string, captures []string) string {
	out := template
	for i, c := range captures {
		out = strings.ReplaceAll(out, fmt.Sprintf("{%d}", i+1), c)
	}
	return out
}

// Resolve returns the first matching rule for path along with its refname
// after capture substitution. A nil, nil result means "no rule matched".
// A non-nil rule with an empty Refname is an explicit block
// (spec.md §4.3 "a map producing an empty refname forbids branch
// creation").
func (m *Mapper) Resolve(path string) (*config.MapPathRule, string, bool) {
	if r, ok := m.resolved[path]; ok {
		if r == nil {
			return nil, "", false
		}
		return r.rule, r.refname, true
	}
	for i := range m.rules {
		if ok, captures := segmentMatch(m.rules[i].segments, path); ok {
			res := &resolution{rule: &m.rules[i].rule, refname: applyCaptures(m.rules[i].rule.Refname, captures), captures: captures}
			m.resolved[path] = res
			return res.rule, res.refname, true
		}
	}
	m.resolved[path] = nil
	return nil, "", false
}

// FindBranchRoot walks path's ancestor directories from shallowest to
// deepest and returns the first one a MapPath rule matches, mirroring the
// common trunk/branches/tags layout where a branch root is a fixed-depth
// directory and everything beneath it belongs to that branch.
func (m *Mapper) FindBranchRoot(path string) (root string, rule *config.MapPathRule, refname string, ok bool) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i <= len(segs); i++ {
		candidate := strings.Join(segs[:i], "/")
		if r, refn, matched := m.Resolve(candidate); matched {
			if r.Refname == "" {
				return "", nil, "", false // explicit block
			}
			return candidate, r, refn, true
		}
	}
	return "", nil, "", false
}

// Mode returns the configured file mode for path, defaulting to the
// standard non-executable blob mode (spec.md §4.4 "Mode is a fixed
// 100644 unless a configured chmod rule matches"). A glob without a "/"
// is also tried against the path's last segment, so "*.sh" matches a
// script in any directory.
func (m *Mapper) Mode(path string) uint32 {
	base := path[strings.LastIndexByte(path, '/')+1:]
	for _, c := range m.chmods {
		if c.pattern.Match(path) || (!strings.Contains(c.spec.Glob, "/") && c.pattern.Match(base)) {
			return c.spec.Mode
		}
	}
	return 0o100644
}

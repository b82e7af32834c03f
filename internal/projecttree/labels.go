package projecttree

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vss2git/vss2git/internal/gitdriver"
)

// ResolveLabel finds the branch(es) a label path applies to, per
// spec.md §4.7: if the path exactly matches a branch root, every branch
// rooted there (itself) receives it; otherwise the longest-prefix branch
// receives it with the residual path dropped (a sub-path label still
// tags the owning branch). A path that is neither a branch root nor
// under exactly one branch resolves to nothing — "never guess"
// (spec.md §9 Design Note).
func ResolveLabel(branches []*Branch, path string) *Branch {
	var best *Branch
	bestLen := -1
	for _, b := range branches {
		if b.Path == path {
			return b
		}
		if strings.HasPrefix(path, b.Path+"/") && len(b.Path) > bestLen {
			best = b
			bestLen = len(b.Path)
		}
	}
	if best == nil {
		logrus.Warnf("projecttree: label %q does not resolve to any branch, skipping", path)
	}
	return best
}

// EmitLabel writes a label as an annotated tag when the owning commit has
// a non-empty message, or a lightweight ref otherwise (spec.md §4.7).
func EmitLabel(ctx context.Context, driver *gitdriver.Driver, branch *Branch, label string, commit, message string, author gitdriver.Identity) error {
	refname := branch.LabelRoot + "/" + label
	if message != "" {
		return driver.Tag(ctx, refname, commit, message, author)
	}
	return driver.UpdateLightweightRef(ctx, refname, commit)
}

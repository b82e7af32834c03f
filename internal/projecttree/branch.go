package projecttree

import (
	"regexp"

	"github.com/gobwas/glob"

	"github.com/vss2git/vss2git/internal/config"
	"github.com/vss2git/vss2git/internal/objstore"
)

// compiledFormat pairs one format_specifications entry with its compiled
// glob, matched against a path relative to the branch root.
type compiledFormat struct {
	spec    config.FormatSpec
	pattern glob.Glob
}

// Branch is one Git branch (or tag-producing lineage) discovered at a
// mapped directory path (spec.md §3 "Branch").
type Branch struct {
	Path           string
	Refname        string
	Cfg            config.MapPathRule
	IndexSeq       int
	WorkdirSeq     int
	IgnoreFiles    []*regexp.Regexp
	DeleteIfMerged bool
	LabelRoot      string

	// WorkDir is the on-disk directory the current WorkdirSeq materialised
	// .gitattributes files into (spec.md §4.4 ".gitattributes worktree");
	// empty until the first commit that needs one. GitAttrsSHA1 is the key
	// WorkDir was last built for, so an unchanged attribute environment
	// across revisions skips the rebuild.
	WorkDir      string
	GitAttrsSHA1 objstore.Hash

	HEAD  *BranchRev
	Stage *BranchRev

	// MergedRevisions tracks, per source branch path, the highest source
	// revision ordinal known merged into this branch's history, used by
	// the fast-forward rule and by the final merged-into-surviving-branch
	// accounting (spec.md §4.4, §4.8).
	MergedRevisions map[string]int

	// Deleted marks the branch's mapped directory as currently absent.
	// MarkDeleted sets it, clears HEAD and bumps IndexSeq; a later revision
	// re-adding the same path clears it and continues under the same
	// refname with a fresh HEAD and index file (spec.md §4.8).
	Deleted    bool
	DeletedRevs []*BranchRev

	formatSpecs []compiledFormat
}

// BranchRev is one per revision observed for a branch (spec.md §3
// "BranchRev"). Lifecycle: created as a branch's Stage, promoted to HEAD
// once its commit (if any) is finalised.
type BranchRev struct {
	Branch *Branch

	RevOrdinal int
	RevID      string

	Tree           *objstore.Tree // this branch's subtree at this revision
	StagedTree     *objstore.Tree // after ignore-file / placeholder adjustments
	StagedGitTree  string
	CommittedGitTree string
	Commit         string

	Parents []*BranchRev

	// Props is the revision_props paragraph stack (spec.md §4.4 "Commit
	// message composition"): one entry per source revision folded into
	// this BranchRev via skip-commit deferral or combining.
	Props []RevisionProps

	Labels []string

	NeedCommit        bool
	SkipCommit        bool
	AnyChangesPresent bool
	FilesStaged       int

	Prev *BranchRev
}

// RevisionProps is one source revision's contribution to a commit
// message: its log text plus the rev identifiers used for optional
// trailers (spec.md §4.4, §6.2 "revision_id_trailer"/"change_id_trailer").
type RevisionProps struct {
	RevOrdinal int
	RevID      string
	Author     string
	Log        string
}

// NewBranch constructs a Branch at path with the resolved rule's
// settings.
func NewBranch(path, refname string, cfg config.MapPathRule) (*Branch, error) {
	b := &Branch{
		Path:            path,
		Refname:         refname,
		Cfg:             cfg,
		DeleteIfMerged:  cfg.DeleteIfMerged,
		LabelRoot:       cfg.LabelsRefRoot,
		MergedRevisions: map[string]int{},
	}
	for _, pat := range cfg.IgnoreFiles {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, &InvalidConfigError{Reason: "bad ignore_files pattern " + pat + ": " + err.Error()}
		}
		b.IgnoreFiles = append(b.IgnoreFiles, re)
	}
	for _, fs := range cfg.FormatSpecs {
		g, err := glob.Compile(fs.Glob, '/')
		if err != nil {
			return nil, &InvalidConfigError{Reason: "bad format_specifications glob " + fs.Glob + ": " + err.Error()}
		}
		b.formatSpecs = append(b.formatSpecs, compiledFormat{spec: fs, pattern: g})
	}
	return b, nil
}

// FormatFor returns the first format_specifications entry (in
// declaration order) whose glob matches relPath, a path relative to the
// branch's mapped root (spec.md §4.9 "gated by per-path format
// specifications").
func (b *Branch) FormatFor(relPath string) (config.FormatSpec, bool) {
	for _, cf := range b.formatSpecs {
		if cf.pattern.Match(relPath) {
			return cf.spec, true
		}
	}
	return config.FormatSpec{}, false
}

// Ignored reports whether path should be filtered from diffs
// (spec.md §4.4 "Difflist generation").
func (b *Branch) Ignored(path string) bool {
	for _, re := range b.IgnoreFiles {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// NewStage allocates the next BranchRev, chained to HEAD, replacing any
// existing Stage (spec.md §3 "the stage is replaced with a fresh instance
// for the next revision").
func (b *Branch) NewStage(rev int, revID string) *BranchRev {
	br := &BranchRev{Branch: b, RevOrdinal: rev, RevID: revID, Prev: b.HEAD}
	if b.HEAD != nil {
		// Nothing is copied from HEAD here: merged-parent tracking
		// (MergedRevisions) lives on the Branch and carries over as is;
		// BranchRev.Parents itself is always a fresh slice per revision,
		// so no aliasing hazard there.
	}
	b.Stage = br
	return br
}

// RevAt walks back from HEAD through Prev links to find the BranchRev
// recorded for ordinal, used by parent selection and staging-base
// fallback to resolve a merge source at the exact revision it was
// recorded against rather than whatever the source branch's HEAD
// currently is (spec.md §4.4 "Parent selection & merge handling").
func (b *Branch) RevAt(ordinal int) *BranchRev {
	for br := b.HEAD; br != nil; br = br.Prev {
		if br.RevOrdinal == ordinal {
			return br
		}
		if br.RevOrdinal < ordinal {
			return nil
		}
	}
	return nil
}

// Promote moves Stage to HEAD.
func (b *Branch) Promote() {
	b.HEAD = b.Stage
	b.Stage = nil
}

// MarkDeleted records the current HEAD into the deleted-revs list and
// bumps IndexSeq so a later re-creation of the same path is a distinct
// branch identity sharing the same refname (spec.md §4.8).
func (b *Branch) MarkDeleted() {
	if b.HEAD != nil {
		b.DeletedRevs = append(b.DeletedRevs, b.HEAD)
	}
	b.HEAD = nil
	b.Stage = nil
	b.IndexSeq++
	b.Deleted = true
}

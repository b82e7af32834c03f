package projecttree

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vss2git/vss2git/internal/authormap"
	"github.com/vss2git/vss2git/internal/config"
	"github.com/vss2git/vss2git/internal/gitdriver"
	"github.com/vss2git/vss2git/internal/historyreader"
	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/revstream"
)

// Engine drives a single project's conversion: branch discovery, the
// per-revision pipeline of spec.md §4.4, revision combining (§4.5),
// skip/edit rules (§4.6), label emission (§4.7), and deletion/merge
// accounting (§4.8). The scheduler-driven async hashing/write-tree path
// of spec.md §4.10 lives in pipeline.go; Engine owns the synchronous
// branch-discovery and bookkeeping surrounding it.
type Engine struct {
	cfg     config.ProjectConfig
	mapper  *Mapper
	driver  *gitdriver.Driver
	authors *authormap.Map
	history *historyreader.Reader
	editMsg []compiledEditRule

	branches map[string]*Branch // keyed by branch root path
	refs     *RefAllocator

	store *objstore.Store // needed to mint placeholder/injected blobs during staging

	pending *revstream.Revision // held back for §4.5 combining

	// combinedInto maps a revision ordinal absorbed by §4.5 combining to
	// the surviving ordinal it was folded into, so a later node's
	// CopyFromRev naming the absorbed ordinal still resolves against
	// internal/historyreader's byOrdinal table (spec.md §4.5 "copy
	// references to the merged revision are rewritten to the surviving
	// one").
	combinedInto map[int]int

	onCommit func(branch *Branch, br *BranchRev)

	hashPool *HashPool

	// memo memoises hash-object results by content+format key across every
	// branch in the run (spec.md §4.10); nil disables memoisation and every
	// blob is rehashed.
	memo *gitdriver.HashMemo

	// disableFormatting overrides every branch's format_specifications,
	// skipping reindentation entirely (spec.md §6.5 "Enable or disable
	// indentation reformatting globally").
	disableFormatting bool

	// workRoot, if set, is where each branch's .gitattributes worktree
	// (spec.md §4.4 ".gitattributes worktree") is materialised. Left
	// empty, blob hashing runs with no GIT_WORK_TREE and .gitattributes
	// resolution falls back to whatever the bare repository itself
	// carries at HEAD, which is the pre-existing behaviour.
	workRoot string
}

// DisableFormatting turns off indentation reformatting for every branch,
// regardless of configured format_specifications (spec.md §6.5).
func (e *Engine) DisableFormatting() {
	e.disableFormatting = true
}

// New builds an Engine for one resolved project configuration.
func New(cfg config.ProjectConfig, driver *gitdriver.Driver, authors *authormap.Map, store *objstore.Store, extract revstream.ExtractSink) (*Engine, error) {
	mapper, err := NewMapper(cfg)
	if err != nil {
		return nil, err
	}
	editRules, err := CompileEditRules(cfg.EditMsgRules)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:          cfg,
		mapper:       mapper,
		driver:       driver,
		authors:      authors,
		history:      historyreader.New(store, extract),
		editMsg:      editRules,
		branches:     map[string]*Branch{},
		refs:         NewRefAllocator(),
		store:        store,
		combinedInto: map[int]int{},
	}, nil
}

// WithWorkRoot installs the base directory under which each branch's
// .gitattributes worktree is materialised (spec.md §4.4 ".gitattributes
// worktree"). Without one, hashing runs without a GIT_WORK_TREE override.
func (e *Engine) WithWorkRoot(root string) {
	e.workRoot = root
}

// OnCommit registers a callback invoked after each BranchRev is
// committed, primarily for runlog/progress wiring.
func (e *Engine) OnCommit(fn func(branch *Branch, br *BranchRev)) {
	e.onCommit = fn
}

// WithHashPool installs the shared hash-object worker pool (spec.md
// §4.10 "Hashing pool"). Without one, commitBranch hashes blobs
// sequentially on the caller's goroutine.
func (e *Engine) WithHashPool(pool *HashPool) {
	e.hashPool = pool
}

// WithHashMemo installs the cross-branch hash-object memo (spec.md §4.10,
// §6.4 "persisted SHA-1 cache"). Without one, every blob is rehashed even
// if an identical (content, format) pair was already hashed this run or a
// prior one.
func (e *Engine) WithHashMemo(memo *gitdriver.HashMemo) {
	e.memo = memo
}

// Run consumes every revision from r in order, applying combining,
// history application, branch discovery, and per-branch commit synthesis,
// then finalises refs (spec.md §4.8).
func (e *Engine) Run(ctx context.Context, r revstream.Reader) error {
	for {
		rev, err := r.Next()
		if err != nil {
			return err
		}
		if rev == nil {
			break
		}
		if e.pending != nil {
			if Combinable(e.pending, rev, int64(e.cfg.CombineMaxSeconds)) {
				e.combinedInto[rev.RevOrdinal] = e.pending.RevOrdinal
				e.pending = Combine(e.pending, rev)
				continue
			}
			if err := e.processRevision(ctx, e.pending); err != nil {
				return err
			}
		}
		e.pending = rev
	}
	if e.pending != nil {
		if err := e.processRevision(ctx, e.pending); err != nil {
			return err
		}
	}
	return e.Finalize(ctx)
}

func (e *Engine) processRevision(ctx context.Context, rev *revstream.Revision) error {
	rev = e.rewriteCombinedCopies(rev)
	hrev, err := e.history.Apply(rev)
	if err != nil {
		return err
	}

	touched := map[*Branch]bool{}
	for _, node := range rev.Nodes {
		root, rule, refname, ok := e.mapper.FindBranchRoot(node.Path)
		if !ok {
			continue
		}
		branch, exists := e.branches[root]
		if !exists {
			branch, err = e.newBranch(root, refname, *rule)
			if err != nil {
				return err
			}
			e.branches[root] = branch
		}
		touched[branch] = true
	}

	for _, node := range rev.Nodes {
		if node.Action != revstream.ActionMerge {
			continue
		}
		root, _, _, ok := e.mapper.FindBranchRoot(node.Path)
		if !ok {
			continue
		}
		if branch, exists := e.branches[root]; exists {
			touched[branch] = true
		}
	}

	e.detectCopyParents(hrev, rev)

	skip, replaceWith := SkipCommitDecision(e.cfg.SkipCommitRules, rev.RevOrdinal, rev.RevID)
	logText := ApplyEditRules(e.editMsg, rev.Log)
	if skip && replaceWith != "" {
		logText = replaceWith
	}

	for branch := range touched {
		tree, ok := subtree(hrev.Tree, branch.Path)
		if !ok {
			if !branch.Deleted {
				branch.MarkDeleted()
			}
			continue
		}
		branch.Deleted = false
		br := branch.NewStage(rev.RevOrdinal, rev.RevID)
		br.SkipCommit = skip
		br.Tree = tree
		br.StagedTree = br.Tree
		br.Props = append(inheritedProps(branch), RevisionProps{
			RevOrdinal: rev.RevOrdinal, RevID: rev.RevID, Author: rev.Author, Log: logText,
		})
		for _, mr := range hrev.PendingMerges {
			if !strings.HasPrefix(mr.TargetPath, branch.Path) {
				continue
			}
			if srcRoot, _, _, ok := e.mapper.FindBranchRoot(mr.SourceCopyPath); ok {
				if src, exists := e.branches[srcRoot]; exists {
					branch.MergedRevisions[src.Path] = mr.SourceRevOrdinal
				}
			}
		}
		for _, lr := range hrev.Labels {
			if lb := ResolveLabel(e.branchList(), lr.Path); lb == branch {
				br.Labels = append(br.Labels, lr.Label)
			}
		}
		if err := e.commitBranch(ctx, branch, br, hrev); err != nil {
			return err
		}
	}
	return nil
}

// rewriteCombinedCopies rewrites any node's CopyFromRev that names an
// ordinal absorbed by an earlier §4.5 combine into the surviving ordinal,
// so historyreader.Reader.resolveCopySource's byOrdinal lookup still
// finds it. rev is returned unmodified (sharing its Nodes slice) when no
// rewrite is needed.
func (e *Engine) rewriteCombinedCopies(rev *revstream.Revision) *revstream.Revision {
	if len(e.combinedInto) == 0 {
		return rev
	}
	var nodes []revstream.Node
	for i, n := range rev.Nodes {
		surv, ok := e.combinedInto[n.CopyFromRev]
		if !ok {
			continue
		}
		if nodes == nil {
			nodes = append([]revstream.Node{}, rev.Nodes...)
		}
		nodes[i].CopyFromRev = surv
	}
	if nodes == nil {
		return rev
	}
	out := *rev
	out.Nodes = nodes
	return &out
}

// detectCopyParents implements spec.md §4.4 parent source (1): a
// directory add/copy whose copyfrom names a path owned by another branch
// adds that branch as a pending merge parent, conditioned on its tree at
// copyfrom_rev being similar to the copying branch's resulting tree.
func (e *Engine) detectCopyParents(hrev *historyreader.HistoryRevision, rev *revstream.Revision) {
	for _, node := range rev.Nodes {
		if node.Kind != revstream.KindDir || node.CopyFromPath == "" {
			continue
		}
		if node.Action != revstream.ActionAdd && node.Action != revstream.ActionCopy {
			continue
		}
		root, _, _, ok := e.mapper.FindBranchRoot(node.Path)
		if !ok {
			continue
		}
		branch, ok := e.branches[root]
		if !ok {
			continue
		}
		srcRoot, _, _, ok := e.mapper.FindBranchRoot(node.CopyFromPath)
		if !ok || srcRoot == root {
			continue
		}
		src, ok := e.branches[srcRoot]
		if !ok {
			continue
		}
		srcRev := src.RevAt(node.CopyFromRev)
		if srcRev == nil || srcRev.Tree == nil {
			continue
		}
		newTree, ok := subtree(hrev.Tree, branch.Path)
		if !ok {
			continue
		}
		if !srcRev.Tree.GetDifferenceMetrics(newTree).IsSimilarTo() {
			continue
		}
		if cur, recorded := branch.MergedRevisions[src.Path]; !recorded || node.CopyFromRev > cur {
			branch.MergedRevisions[src.Path] = node.CopyFromRev
		}
	}
}

func (e *Engine) newBranch(root, refname string, rule config.MapPathRule) (*Branch, error) {
	resolved, err := e.refs.Allocate(root, refname)
	if err != nil {
		return nil, err
	}
	return NewBranch(root, resolved, rule)
}

func (e *Engine) branchList() []*Branch {
	out := make([]*Branch, 0, len(e.branches))
	for _, b := range e.branches {
		out = append(out, b)
	}
	return out
}

func subtree(root *objstore.Tree, path string) (*objstore.Tree, bool) {
	if path == "" {
		return root, true
	}
	obj, ok := root.FindPath(path)
	if !ok {
		return nil, false
	}
	t, ok := obj.(*objstore.Tree)
	return t, ok
}

func inheritedProps(b *Branch) []RevisionProps {
	if b.HEAD == nil || !b.HEAD.SkipCommit {
		return nil
	}
	return append([]RevisionProps{}, b.HEAD.Props...)
}

// commitBranch runs spec.md §4.4 step 3 ("prepare_commit"): stage
// selection, diffing, hashing/writing through the gitdriver, parent
// selection, and commit-tree emission. Blob hashing for the diff's added
// and changed entries fans out across the shared hash pool
// (pipeline.go/stageDiff, spec.md §4.10 "Hashing pool"); write-tree and
// commit-tree stay on the calling goroutine, matching the spec's
// single-worker write-tree pool since BranchRev N already depends on
// BranchRev N-1 for this branch.
func (e *Engine) commitBranch(ctx context.Context, branch *Branch, br *BranchRev, hrev *historyreader.HistoryRevision) error {
	staged := e.applyEmptyPlaceholder(branch, br.Tree)
	staged = e.applyInjectFiles(branch, staged)
	br.StagedTree = staged

	base, baseGitTree := e.stagingBase(branch, br)

	oldTree := emptyTreeFallback(base)
	newTree := emptyTreeFallback(staged)
	diff, err := oldTree.Compare(newTree, "", true)
	if err != nil {
		return err
	}
	diff = filterIgnored(branch, diff, hrev)

	attrsHash := gitAttrsSHA1(newTree)
	if err := e.ensureWorkdir(branch, newTree, attrsHash); err != nil {
		return err
	}
	env := gitdriver.Env{IndexFile: fmt.Sprintf(".git.index%d", branch.IndexSeq), WorkTree: branch.WorkDir}
	if baseGitTree != "" {
		if err := e.driver.ReadTreeReset(ctx, env, baseGitTree); err != nil {
			return err
		}
	}

	lines, err := stageDiff(ctx, e.driver, e.hashPool, env, branch, e.mapper.Mode, diff, e.disableFormatting, e.memo, attrsHash)
	if err != nil {
		return err
	}
	if err := e.driver.UpdateIndex(ctx, env, lines); err != nil {
		return err
	}
	br.FilesStaged = len(lines)
	br.AnyChangesPresent = len(diff) > 0

	stagedGitTree, err := e.driver.WriteTree(ctx, env)
	if err != nil {
		return err
	}
	br.StagedGitTree = stagedGitTree

	parents := e.selectParents(branch, br, stagedGitTree)
	needCommit := len(parents) > 1 || stagedGitTree != baseGitTree || br.NeedCommit

	if br.SkipCommit || !needCommit {
		branch.Promote()
		return nil
	}

	author := e.authors.Resolve(authorOf(br))
	message := ComposeMessage(br, diff, e.cfg.RevisionIDTrailer, e.cfg.ChangeIDTrailer)
	commit, err := e.driver.CommitTree(ctx, stagedGitTree, parentCommits(parents), message, author, author)
	if err != nil {
		return err
	}
	br.Commit = commit
	br.CommittedGitTree = stagedGitTree
	br.Parents = parents
	branch.Promote()

	if e.onCommit != nil {
		e.onCommit(branch, br)
	}
	for _, label := range br.Labels {
		if err := EmitLabel(ctx, e.driver, branch, label, commit, message, author); err != nil {
			logrus.Warnf("projecttree: label %q on %s: %v", label, branch.Refname, err)
		}
	}
	return nil
}

// stagingBase implements spec.md §4.4 "Staging-base selection": the
// previous HEAD's staged tree if one exists, otherwise the staged tree of
// a pending merge parent whose content is similar to this revision's own
// tree, repopulated into the index by the caller via `read-tree -i
// --reset`. It returns both the base tree (for diffing) and the git tree
// OID already realised for it (empty if none).
func (e *Engine) stagingBase(branch *Branch, br *BranchRev) (*objstore.Tree, string) {
	if branch.HEAD != nil && branch.HEAD.StagedTree != nil {
		return branch.HEAD.StagedTree, branch.HEAD.StagedGitTree
	}
	newTree := emptyTreeFallback(br.StagedTree)
	for _, srcPath := range sortedKeys(branch.MergedRevisions) {
		rev := branch.MergedRevisions[srcPath]
		src, ok := e.branches[srcPath]
		if !ok {
			continue
		}
		parentRev := src.RevAt(rev)
		if parentRev == nil || parentRev.StagedTree == nil || parentRev.StagedGitTree == "" {
			continue
		}
		if parentRev.StagedTree.GetDifferenceMetrics(newTree).IsSimilarTo() {
			return parentRev.StagedTree, parentRev.StagedGitTree
		}
	}
	return nil, ""
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func emptyTreeFallback(t *objstore.Tree) *objstore.Tree {
	if t != nil {
		return t
	}
	return objstore.NewStore().Finalize(objstore.NewTree()).(*objstore.Tree)
}

// filterIgnored applies both the branch's own ignore_files patterns and
// the cumulative hide-action record (spec.md §4.2/§4.4 "hidden entries
// are suppressed ... filtered from diffs and commits but remain
// addressable by history"). Hidden status is checked against the
// project-root-relative path, since historyreader.HistoryRevision.Hidden
// is keyed that way, and against every ancestor directory so hiding a
// directory suppresses everything beneath it.
func filterIgnored(branch *Branch, diff []objstore.DiffEntry, hrev *historyreader.HistoryRevision) []objstore.DiffEntry {
	out := diff[:0]
	for _, d := range diff {
		if branch.Ignored(d.Path) {
			continue
		}
		if isHiddenPath(hrev, joinPath(branch.Path, d.Path)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func isHiddenPath(hrev *historyreader.HistoryRevision, full string) bool {
	if hrev == nil {
		return false
	}
	for p := full; p != ""; p = parentDir(p) {
		if hrev.IsHidden(p) {
			return true
		}
	}
	return false
}

func parentDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// selectParents implements spec.md §4.4 "Parent selection & merge
// handling": the branch's own previous commit plus one parent per source
// recorded in MergedRevisions (populated both by explicit merge actions
// and by detectCopyParents), deduplicated and then reduced by the
// fast-forward rule.
func (e *Engine) selectParents(branch *Branch, br *BranchRev, stagedGitTree string) []*BranchRev {
	var parents []*BranchRev
	if branch.HEAD != nil {
		parents = append(parents, branch.HEAD)
	}
	for _, srcPath := range sortedKeys(branch.MergedRevisions) {
		rev := branch.MergedRevisions[srcPath]
		if src, ok := e.branches[srcPath]; ok {
			if parentRev := src.RevAt(rev); parentRev != nil {
				parents = append(parents, parentRev)
			}
		}
	}
	parents = dedupeParents(parents)
	return fastForwardDrop(parents, stagedGitTree)
}

func dedupeParents(parents []*BranchRev) []*BranchRev {
	seen := map[string]bool{}
	out := make([]*BranchRev, 0, len(parents))
	for _, p := range parents {
		if p.Commit == "" {
			continue
		}
		if seen[p.Commit] {
			continue
		}
		seen[p.Commit] = true
		out = append(out, p)
	}
	return out
}

// fastForwardDrop implements spec.md §4.4's fast-forward rule: with
// exactly two parents, if the second's committed tree already equals the
// tree about to be committed, and the first is reachable as an ancestor
// of the second through merged_revisions bookkeeping, the first parent is
// redundant and dropped.
func fastForwardDrop(parents []*BranchRev, stagedGitTree string) []*BranchRev {
	if len(parents) != 2 {
		return parents
	}
	first, second := parents[0], parents[1]
	if second.CommittedGitTree == "" || second.CommittedGitTree != stagedGitTree {
		return parents
	}
	if isAncestorThroughMerges(first, second) {
		return parents[1:]
	}
	return parents
}

func isAncestorThroughMerges(first, second *BranchRev) bool {
	if first.Branch == nil || second.Branch == nil {
		return false
	}
	mergedAt, ok := second.Branch.MergedRevisions[first.Branch.Path]
	return ok && mergedAt >= first.RevOrdinal
}

func parentCommits(parents []*BranchRev) []string {
	out := make([]string, 0, len(parents))
	for _, p := range parents {
		out = append(out, p.Commit)
	}
	return out
}

func authorOf(br *BranchRev) string {
	if len(br.Props) == 0 {
		return "unknown"
	}
	return br.Props[len(br.Props)-1].Author
}

// emptyNameSet returns the set of top-level entry names that must be
// ignored when deciding whether a directory is "empty" for placeholder
// purposes: the placeholder file itself plus any branch inject_files
// living at that level, neither of which count as real content.
func emptyNameSet(placeholder string, injects []config.InjectFile) map[string]bool {
	names := map[string]bool{}
	if placeholder != "" {
		names[placeholder] = true
	}
	for _, inj := range injects {
		if i := strings.IndexByte(inj.Path, '/'); i >= 0 {
			names[inj.Path[:i]] = true
		} else {
			names[inj.Path] = true
		}
	}
	return names
}

func directoryIsEmpty(branch *Branch, t *objstore.Tree, dirPath string, ignoreNames map[string]bool) bool {
	for _, entry := range t.Entries() {
		if ignoreNames[entry.Name] {
			continue
		}
		if branch.Ignored(joinPath(dirPath, entry.Name)) {
			continue
		}
		return false
	}
	return true
}

// applyEmptyPlaceholder implements spec.md §4.4 "Empty-directory
// placeholder": every directory in t (not just the branch root) that
// becomes empty of non-ignored entries gets the configured placeholder
// blob injected; one that already carries the placeholder but has
// regained real content has it removed. A no-op when no placeholder is
// configured.
func (e *Engine) applyEmptyPlaceholder(branch *Branch, t *objstore.Tree) *objstore.Tree {
	if e.cfg.EmptyPlaceholder == "" {
		return t
	}
	return e.store.Finalize(e.placeholderPass(branch, t, "")).(*objstore.Tree)
}

func (e *Engine) placeholderPass(branch *Branch, t *objstore.Tree, dirPath string) *objstore.Tree {
	cur := t
	for _, entry := range t.Entries() {
		sub, ok := entry.Object.(*objstore.Tree)
		if !ok {
			continue
		}
		childPath := joinPath(dirPath, entry.Name)
		newSub := e.placeholderPass(branch, sub, childPath)
		if newSub != sub {
			cur = cur.Set(childPath, newSub, 0)
		}
	}
	cur = e.store.Finalize(cur).(*objstore.Tree)

	placeholder := e.cfg.EmptyPlaceholder
	_, hasPlaceholder := cur.Get(placeholder)
	empty := directoryIsEmpty(branch, cur, dirPath, map[string]bool{placeholder: true})
	switch {
	case empty && !hasPlaceholder:
		blob := e.store.Finalize(e.store.MakeBlob(e.cfg.EmptyPlaceholderData))
		cur = e.store.Finalize(cur.Set(placeholder, blob, 0)).(*objstore.Tree)
	case !empty && hasPlaceholder:
		if newCur, err := cur.Delete(placeholder); err == nil {
			cur = e.store.Finalize(newCur).(*objstore.Tree)
		}
	}
	return cur
}

// applyInjectFiles implements spec.md §4.6 "inject_files": a branch's
// configured fixed blobs are forced into its tree once it holds any real
// (non-placeholder, non-injected) content, and removed again once the
// branch returns to empty.
func (e *Engine) applyInjectFiles(branch *Branch, t *objstore.Tree) *objstore.Tree {
	if len(branch.Cfg.InjectFiles) == 0 {
		return t
	}
	names := emptyNameSet(e.cfg.EmptyPlaceholder, branch.Cfg.InjectFiles)
	empty := directoryIsEmpty(branch, t, "", names)

	cur := t
	changed := false
	for _, inj := range branch.Cfg.InjectFiles {
		_, present := cur.FindPath(inj.Path)
		switch {
		case !empty && !present:
			blob := e.store.Finalize(e.store.MakeBlob(inj.Data))
			cur = cur.Set(inj.Path, blob, 0)
			changed = true
		case empty && present:
			if newCur, err := cur.Delete(inj.Path); err == nil {
				cur = newCur
				changed = true
			}
		}
	}
	if !changed {
		return t
	}
	return e.store.Finalize(cur).(*objstore.Tree)
}

// gitAttrFile is one .gitattributes blob found while walking a tree.
type gitAttrFile struct {
	path string
	hash objstore.Hash
	data []byte
}

// collectGitAttributes finds every ".gitattributes" blob under t,
// recording its tree-relative path and content.
func collectGitAttributes(t *objstore.Tree, prefix string, out *[]gitAttrFile) {
	for _, entry := range t.Entries() {
		p := joinPath(prefix, entry.Name)
		switch obj := entry.Object.(type) {
		case *objstore.Tree:
			collectGitAttributes(obj, p, out)
		case *objstore.Blob:
			if entry.Name == ".gitattributes" {
				*out = append(*out, gitAttrFile{path: p, hash: obj.Hash(), data: obj.Data()})
			}
		}
	}
}

// gitAttrsSHA1 implements spec.md §4.4's "SHA-1 over sorted path +
// data_sha1 pairs", used both as the worktree rebuild trigger and as a
// component of the hash-object memo key of spec.md §4.10.
func gitAttrsSHA1(t *objstore.Tree) objstore.Hash {
	var files []gitAttrFile
	collectGitAttributes(t, "", &files)
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	var buf bytes.Buffer
	for _, f := range files {
		fmt.Fprintf(&buf, "%s:%s\n", f.path, f.hash.String())
	}
	return objstore.HashBytes(buf.Bytes())
}

// ensureWorkdir implements spec.md §4.4 ".gitattributes worktree":
// whenever the current tree's attribute environment diverges from the
// one branch.WorkDir was last built for, a fresh directory tagged by a
// bumped WorkdirSeq is materialised with every .gitattributes blob
// written to its tree-relative path, so concurrent hashing of other
// revisions against the old directory is unaffected. A no-op when no
// work root is configured.
func (e *Engine) ensureWorkdir(branch *Branch, t *objstore.Tree, attrsHash objstore.Hash) error {
	if e.workRoot == "" {
		return nil
	}
	if branch.WorkDir != "" && branch.GitAttrsSHA1 == attrsHash {
		return nil
	}
	branch.WorkdirSeq++
	var files []gitAttrFile
	collectGitAttributes(t, "", &files)
	dir := filepath.Join(e.workRoot, sanitizeRefname(branch.Refname), fmt.Sprintf("wd%d", branch.WorkdirSeq))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, f.data, 0o644); err != nil {
			return err
		}
	}
	branch.WorkDir = dir
	branch.GitAttrsSHA1 = attrsHash
	return nil
}

func sanitizeRefname(refname string) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(refname)
}

// Finalize writes every live branch's HEAD to its refname and preserves
// unmerged deleted branches under "<refname>_deleted@r<rev>", in one
// batched ref transaction (spec.md §4.8, §5 "Ref updates"). A deleted
// branch whose last revision is covered by some surviving branch's
// recorded merge is considered merged and gets no ref at all; branches
// flagged delete_if_merged are suppressed the same way even short of full
// coverage by a single merge, since their intent is "don't keep history
// duplicated once any merge landed".
func (e *Engine) Finalize(ctx context.Context) error {
	merged := map[string]int{}
	for _, b := range e.branches {
		for path, rev := range b.MergedRevisions {
			if cur, ok := merged[path]; !ok || rev > cur {
				merged[path] = rev
			}
		}
	}

	var updates []gitdriver.RefUpdate
	for _, b := range e.branches {
		if b.HEAD != nil && b.HEAD.Commit != "" {
			updates = append(updates, gitdriver.RefUpdate{Refname: b.Refname, Target: b.HEAD.Commit})
		}
		mergedAt, isMerged := merged[b.Path]
		if b.DeleteIfMerged && isMerged {
			continue
		}
		for _, dh := range b.DeletedRevs {
			if dh.Commit == "" {
				continue
			}
			if isMerged && mergedAt >= dh.RevOrdinal {
				continue
			}
			updates = append(updates, gitdriver.RefUpdate{
				Refname: fmt.Sprintf("%s_deleted@r%d", b.Refname, dh.RevOrdinal),
				Target:  dh.Commit,
			})
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return e.driver.UpdateRefBatch(ctx, updates)
}

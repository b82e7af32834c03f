package projecttree

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vss2git/vss2git/internal/config"
	"github.com/vss2git/vss2git/internal/historyreader"
	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/revstream"
)

func newTestEngine(t *testing.T, cfg config.ProjectConfig) *Engine {
	t.Helper()
	store := objstore.NewStore()
	e, err := New(cfg, nil, nil, store, nil)
	require.NoError(t, err)
	return e
}

func mustFinalizeTree(store *objstore.Store, tr *objstore.Tree) *objstore.Tree {
	return store.Finalize(tr).(*objstore.Tree)
}

func TestRewriteCombinedCopiesRewritesAbsorbedOrdinal(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	e.combinedInto[2] = 1

	rev := &revstream.Revision{RevOrdinal: 3, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindDir, Path: "branches/b", CopyFromPath: "trunk", CopyFromRev: 2},
	}}
	out := e.rewriteCombinedCopies(rev)
	require.Len(t, out.Nodes, 1)
	assert.Equal(t, 1, out.Nodes[0].CopyFromRev)
	// original slice is untouched since a copy was made.
	assert.Equal(t, 2, rev.Nodes[0].CopyFromRev)
}

func TestRewriteCombinedCopiesNoOpWhenNothingAbsorbed(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	rev := &revstream.Revision{RevOrdinal: 3, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindDir, Path: "branches/b", CopyFromPath: "trunk", CopyFromRev: 2},
	}}
	out := e.rewriteCombinedCopies(rev)
	assert.Same(t, rev, out)
}

func testMapperConfig() config.ProjectConfig {
	return config.ProjectConfig{MapPaths: []config.MapPathRule{
		{Glob: "trunk", Refname: "trunk"},
		{Glob: "branches/*", Refname: "{0}"},
	}}
}

func TestDetectCopyParentsRecordsSimilarSource(t *testing.T) {
	e := newTestEngine(t, testMapperConfig())
	store := e.store

	trunkTree := mustFinalizeTree(store, objstore.NewTree().
		Set("f1", store.MakeBlob([]byte("1")), 0).
		Set("f2", store.MakeBlob([]byte("2")), 0))
	trunk, err := NewBranch("trunk", "refs/heads/trunk", config.MapPathRule{Glob: "trunk", Refname: "trunk"})
	require.NoError(t, err)
	trunk.HEAD = &BranchRev{Branch: trunk, RevOrdinal: 5, Tree: trunkTree, StagedTree: trunkTree}
	e.branches["trunk"] = trunk

	branchB, err := NewBranch("branches/b", "refs/heads/b", config.MapPathRule{Glob: "branches/*", Refname: "{0}"})
	require.NoError(t, err)
	e.branches["branches/b"] = branchB

	rev := &revstream.Revision{RevOrdinal: 6, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindDir, Path: "branches/b", CopyFromPath: "trunk", CopyFromRev: 5},
	}}
	// hrev.Tree must contain branches/b similar to trunk at rev 5.
	root := mustFinalizeTree(store, objstore.NewTree().Set("branches/b", trunkTree, 0).Set("trunk", trunkTree, 0))
	hrev := &historyreader.HistoryRevision{Tree: root}

	e.detectCopyParents(hrev, rev)
	assert.Equal(t, 5, branchB.MergedRevisions["trunk"])
}

func TestDetectCopyParentsIgnoresDissimilarSource(t *testing.T) {
	e := newTestEngine(t, testMapperConfig())
	store := e.store

	trunkTree := mustFinalizeTree(store, objstore.NewTree().
		Set("f1", store.MakeBlob([]byte("1")), 0).
		Set("f2", store.MakeBlob([]byte("2")), 0).
		Set("f3", store.MakeBlob([]byte("3")), 0))
	trunk, err := NewBranch("trunk", "refs/heads/trunk", config.MapPathRule{Glob: "trunk", Refname: "trunk"})
	require.NoError(t, err)
	trunk.HEAD = &BranchRev{Branch: trunk, RevOrdinal: 5, Tree: trunkTree, StagedTree: trunkTree}
	e.branches["trunk"] = trunk

	branchB, err := NewBranch("branches/b", "refs/heads/b", config.MapPathRule{Glob: "branches/*", Refname: "{0}"})
	require.NoError(t, err)
	e.branches["branches/b"] = branchB

	// Mostly unrelated content: every entry differs.
	bTree := mustFinalizeTree(store, objstore.NewTree().
		Set("g1", store.MakeBlob([]byte("x")), 0).
		Set("g2", store.MakeBlob([]byte("y")), 0).
		Set("g3", store.MakeBlob([]byte("z")), 0))
	root := mustFinalizeTree(store, objstore.NewTree().Set("branches/b", bTree, 0).Set("trunk", trunkTree, 0))
	hrev := &historyreader.HistoryRevision{Tree: root}

	rev := &revstream.Revision{RevOrdinal: 6, Nodes: []revstream.Node{
		{Action: revstream.ActionAdd, Kind: revstream.KindDir, Path: "branches/b", CopyFromPath: "trunk", CopyFromRev: 5},
	}}
	e.detectCopyParents(hrev, rev)
	assert.Empty(t, branchB.MergedRevisions)
}

func TestStagingBaseUsesPriorHeadWhenPresent(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	store := e.store
	tr := mustFinalizeTree(store, objstore.NewTree().Set("f", store.MakeBlob([]byte("1")), 0))
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{})
	require.NoError(t, err)
	branch.HEAD = &BranchRev{Branch: branch, StagedTree: tr, StagedGitTree: "deadbeef"}

	base, gitTree := e.stagingBase(branch, &BranchRev{})
	assert.Same(t, tr, base)
	assert.Equal(t, "deadbeef", gitTree)
}

func TestStagingBaseFallsBackToSimilarMergeParent(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	store := e.store

	srcTree := mustFinalizeTree(store, objstore.NewTree().
		Set("f1", store.MakeBlob([]byte("1")), 0).
		Set("f2", store.MakeBlob([]byte("2")), 0))
	src, err := NewBranch("src", "refs/heads/src", config.MapPathRule{})
	require.NoError(t, err)
	src.HEAD = &BranchRev{Branch: src, RevOrdinal: 4, StagedTree: srcTree, StagedGitTree: "cafe"}
	e.branches["src"] = src

	dst, err := NewBranch("dst", "refs/heads/dst", config.MapPathRule{})
	require.NoError(t, err)
	dst.MergedRevisions["src"] = 4

	newTree := mustFinalizeTree(store, objstore.NewTree().
		Set("f1", store.MakeBlob([]byte("1")), 0).
		Set("f2", store.MakeBlob([]byte("2-changed")), 0))

	base, gitTree := e.stagingBase(dst, &BranchRev{StagedTree: newTree})
	assert.Same(t, srcTree, base)
	assert.Equal(t, "cafe", gitTree)
}

func TestStagingBaseSkipsDissimilarMergeParent(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	store := e.store

	srcTree := mustFinalizeTree(store, objstore.NewTree().
		Set("f1", store.MakeBlob([]byte("1")), 0).
		Set("f2", store.MakeBlob([]byte("2")), 0).
		Set("f3", store.MakeBlob([]byte("3")), 0))
	src, err := NewBranch("src", "refs/heads/src", config.MapPathRule{})
	require.NoError(t, err)
	src.HEAD = &BranchRev{Branch: src, RevOrdinal: 4, StagedTree: srcTree, StagedGitTree: "cafe"}
	e.branches["src"] = src

	dst, err := NewBranch("dst", "refs/heads/dst", config.MapPathRule{})
	require.NoError(t, err)
	dst.MergedRevisions["src"] = 4

	newTree := mustFinalizeTree(store, objstore.NewTree().
		Set("g1", store.MakeBlob([]byte("x")), 0).
		Set("g2", store.MakeBlob([]byte("y")), 0).
		Set("g3", store.MakeBlob([]byte("z")), 0))

	base, gitTree := e.stagingBase(dst, &BranchRev{StagedTree: newTree})
	assert.Nil(t, base)
	assert.Equal(t, "", gitTree)
}

func TestSelectParentsIncludesHeadAndMergeSources(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})

	src, err := NewBranch("src", "refs/heads/src", config.MapPathRule{})
	require.NoError(t, err)
	srcRev := &BranchRev{Branch: src, RevOrdinal: 4, Commit: "srccommit"}
	src.HEAD = srcRev
	e.branches["src"] = src

	dst, err := NewBranch("dst", "refs/heads/dst", config.MapPathRule{})
	require.NoError(t, err)
	dst.MergedRevisions["src"] = 4
	dstHead := &BranchRev{Branch: dst, Commit: "dstcommit"}
	dst.HEAD = dstHead

	parents := e.selectParents(dst, &BranchRev{}, "anytree")
	require.Len(t, parents, 2)
	assert.Contains(t, []*BranchRev{dstHead, srcRev}, parents[0])
}

func TestFastForwardDropsAncestorFirstParent(t *testing.T) {
	first := &BranchRev{Branch: &Branch{Path: "a"}, RevOrdinal: 3, Commit: "c1"}
	secondBranch := &Branch{Path: "b", MergedRevisions: map[string]int{"a": 3}}
	second := &BranchRev{Branch: secondBranch, CommittedGitTree: "treeX", Commit: "c2"}

	out := fastForwardDrop([]*BranchRev{first, second}, "treeX")
	require.Len(t, out, 1)
	assert.Same(t, second, out[0])
}

func TestFastForwardKeepsBothWhenTreesDiffer(t *testing.T) {
	first := &BranchRev{Branch: &Branch{Path: "a"}, RevOrdinal: 3, Commit: "c1"}
	secondBranch := &Branch{Path: "b", MergedRevisions: map[string]int{"a": 3}}
	second := &BranchRev{Branch: secondBranch, CommittedGitTree: "treeY", Commit: "c2"}

	out := fastForwardDrop([]*BranchRev{first, second}, "treeX")
	assert.Len(t, out, 2)
}

func TestFastForwardKeepsSingleParent(t *testing.T) {
	one := &BranchRev{Commit: "c1"}
	assert.Len(t, fastForwardDrop([]*BranchRev{one}, "t"), 1)
}

func TestFilterIgnoredDropsHiddenPaths(t *testing.T) {
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{})
	require.NoError(t, err)

	diff := []objstore.DiffEntry{{Path: "secret/f"}, {Path: "public/f"}}
	hrev := &historyreader.HistoryRevision{Hidden: map[string]bool{"b/secret": true}}

	out := filterIgnored(branch, diff, hrev)
	require.Len(t, out, 1)
	assert.Equal(t, "public/f", out[0].Path)
}

func TestFilterIgnoredDropsConfiguredIgnorePatterns(t *testing.T) {
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{IgnoreFiles: []string{`\.tmp$`}})
	require.NoError(t, err)

	diff := []objstore.DiffEntry{{Path: "a.tmp"}, {Path: "a.go"}}
	out := filterIgnored(branch, diff, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "a.go", out[0].Path)
}

func TestApplyEmptyPlaceholderInjectsAndRemoves(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{EmptyPlaceholder: ".keep", EmptyPlaceholderData: []byte("x")})
	store := e.store
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{})
	require.NoError(t, err)

	empty := mustFinalizeTree(store, objstore.NewTree())
	staged := e.applyEmptyPlaceholder(branch, empty)
	_, ok := staged.Get(".keep")
	assert.True(t, ok, "placeholder should be injected into an empty tree")

	withFile := mustFinalizeTree(store, objstore.NewTree().Set("real.txt", store.MakeBlob([]byte("hi")), 0))
	staged2 := e.applyEmptyPlaceholder(branch, withFile)
	_, ok = staged2.Get(".keep")
	assert.False(t, ok, "placeholder must not be added alongside real content")

	// Now drop back to only the placeholder, confirm a non-empty directory
	// that regains real content loses an existing placeholder.
	withPlaceholder := mustFinalizeTree(store, objstore.NewTree().Set(".keep", store.MakeBlob([]byte("x")), 0))
	withBoth := mustFinalizeTree(store, withPlaceholder.Set("real.txt", store.MakeBlob([]byte("hi")), 0))
	staged3 := e.applyEmptyPlaceholder(branch, withBoth)
	_, ok = staged3.Get(".keep")
	assert.False(t, ok)
}

func TestApplyEmptyPlaceholderRecursesIntoSubdirectories(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{EmptyPlaceholder: ".keep", EmptyPlaceholderData: []byte("x")})
	store := e.store
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{})
	require.NoError(t, err)

	// A sibling file keeps the tree itself non-empty while "sub" becomes
	// empty once its only file is removed.
	tr2 := mustFinalizeTree(store, objstore.NewTree().
		Set("sub/f", store.MakeBlob([]byte("x")), 0).
		Set("other", store.MakeBlob([]byte("y")), 0))
	tr3, err := tr2.Delete("sub/f")
	require.NoError(t, err)
	tr3 = mustFinalizeTree(store, tr3)

	staged := e.applyEmptyPlaceholder(branch, tr3)
	sub, ok := staged.Get("sub")
	require.True(t, ok)
	subTree := sub.Object.(*objstore.Tree)
	_, ok = subTree.Get(".keep")
	assert.True(t, ok)
}

func TestApplyInjectFilesInjectsOnFirstContentAndRemovesOnEmpty(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	store := e.store
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{
		InjectFiles: []config.InjectFile{{Path: "README", Data: []byte("hello")}},
	})
	require.NoError(t, err)

	empty := mustFinalizeTree(store, objstore.NewTree())
	staged := e.applyInjectFiles(branch, empty)
	_, ok := staged.FindPath("README")
	assert.False(t, ok, "inject_files must not appear while the branch has no real content")

	withFile := mustFinalizeTree(store, objstore.NewTree().Set("real.txt", store.MakeBlob([]byte("hi")), 0))
	staged2 := e.applyInjectFiles(branch, withFile)
	obj, ok := staged2.FindPath("README")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), obj.(*objstore.Blob).Data())

	backToEmpty := mustFinalizeTree(store, staged2)
	deleted, err := backToEmpty.Delete("real.txt")
	require.NoError(t, err)
	deleted = mustFinalizeTree(store, deleted)
	staged3 := e.applyInjectFiles(branch, deleted)
	_, ok = staged3.FindPath("README")
	assert.False(t, ok)
}

func TestGitAttrsSHA1StableAndSensitiveToContent(t *testing.T) {
	store := objstore.NewStore()
	tr1 := mustFinalizeTree(store, objstore.NewTree().Set(".gitattributes", store.MakeBlob([]byte("* text")), 0))
	tr2 := mustFinalizeTree(store, objstore.NewTree().Set(".gitattributes", store.MakeBlob([]byte("* text")), 0))
	tr3 := mustFinalizeTree(store, objstore.NewTree().Set(".gitattributes", store.MakeBlob([]byte("* -text")), 0))

	assert.Equal(t, gitAttrsSHA1(tr1), gitAttrsSHA1(tr2))
	assert.NotEqual(t, gitAttrsSHA1(tr1), gitAttrsSHA1(tr3))
}

func TestGitAttrsSHA1CollectsNestedFiles(t *testing.T) {
	store := objstore.NewStore()
	tr := mustFinalizeTree(store, objstore.NewTree().
		Set(".gitattributes", store.MakeBlob([]byte("* text")), 0).
		Set("sub/.gitattributes", store.MakeBlob([]byte("*.bin -text")), 0))
	noSub := mustFinalizeTree(store, objstore.NewTree().Set(".gitattributes", store.MakeBlob([]byte("* text")), 0))
	assert.NotEqual(t, gitAttrsSHA1(tr), gitAttrsSHA1(noSub))
}

func TestEnsureWorkdirNoopWithoutWorkRoot(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{})
	require.NoError(t, err)
	tr := mustFinalizeTree(e.store, objstore.NewTree())

	require.NoError(t, e.ensureWorkdir(branch, tr, objstore.HashBytes(nil)))
	assert.Equal(t, "", branch.WorkDir)
	assert.Equal(t, 0, branch.WorkdirSeq)
}

func TestEnsureWorkdirMaterialisesAndRebuildsOnAttrChange(t *testing.T) {
	e := newTestEngine(t, config.ProjectConfig{})
	e.WithWorkRoot(t.TempDir())
	branch, err := NewBranch("b", "refs/heads/b", config.MapPathRule{})
	require.NoError(t, err)

	store := e.store
	tr1 := mustFinalizeTree(store, objstore.NewTree().Set(".gitattributes", store.MakeBlob([]byte("* text")), 0))
	hash1 := gitAttrsSHA1(tr1)
	require.NoError(t, e.ensureWorkdir(branch, tr1, hash1))
	require.NotEmpty(t, branch.WorkDir)
	assert.Equal(t, 1, branch.WorkdirSeq)
	firstDir := branch.WorkDir

	data, err := os.ReadFile(firstDir + "/.gitattributes")
	require.NoError(t, err)
	assert.Equal(t, "* text", string(data))

	// Same hash: no rebuild.
	require.NoError(t, e.ensureWorkdir(branch, tr1, hash1))
	assert.Equal(t, 1, branch.WorkdirSeq)
	assert.Equal(t, firstDir, branch.WorkDir)

	// Changed attributes: rebuild into a fresh, higher-numbered directory.
	tr2 := mustFinalizeTree(store, objstore.NewTree().Set(".gitattributes", store.MakeBlob([]byte("* -text")), 0))
	hash2 := gitAttrsSHA1(tr2)
	require.NoError(t, e.ensureWorkdir(branch, tr2, hash2))
	assert.Equal(t, 2, branch.WorkdirSeq)
	assert.NotEqual(t, firstDir, branch.WorkDir)
}

func TestSanitizeRefname(t *testing.T) {
	assert.Equal(t, "refs_heads_trunk", sanitizeRefname("refs/heads/trunk"))
}

// Package historyreader applies the abstract revision stream of spec.md §6.1
// against internal/objstore, producing a per-revision tree snapshot
// (spec.md §4.2, §3 "HistoryRevision"). It does not decide which Git
// branches exist or what commits to emit — that is internal/projecttree's
// job, driven off the MergeRequest/LabelRequest/Hidden results this package
// returns per revision.
package historyreader

import (
	"github.com/sirupsen/logrus"

	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/revstream"
)

// MergeRequest records a pending parent for the target path's owning branch
// (spec.md §4.2 "merge: does not change the tree; records a pending
// parent").
type MergeRequest struct {
	TargetPath       string
	SourceCopyPath   string // the merge's copyfrom_path, for source-branch lookup
	SourceRevOrdinal int
}

// LabelRequest records a label to be applied to every branch under Path
// (spec.md §4.2 "label").
type LabelRequest struct {
	Path  string
	Label string
}

// HistoryRevision is the materialised state after applying one Revision's
// nodes: the full project tree at that revision, chained to its
// predecessor for ancestry walks (spec.md §3).
type HistoryRevision struct {
	Rev           *revstream.Revision
	Tree          *objstore.Tree
	Prev          *HistoryRevision
	PendingMerges []MergeRequest
	Labels        []LabelRequest
	Hidden        map[string]bool // cumulative hidden paths, inherited copy-on-write
}

// IsHidden reports whether path was marked hidden by a "hide" action at or
// before this revision.
func (h *HistoryRevision) IsHidden(path string) bool {
	return h.Hidden[path]
}

// Reader applies revisions in order against a shared objstore.Store,
// keeping enough history to resolve copyfrom references by revision
// ordinal (spec.md §4.2 "Copy-source resolution walks the referenced
// revision's root").
type Reader struct {
	store       *objstore.Store
	byOrdinal   map[int]*HistoryRevision
	current     *HistoryRevision
	extractSink revstream.ExtractSink
}

// New returns a Reader backed by store. extractSink may be nil if the
// stream never uses the "extract" action.
func New(store *objstore.Store, extractSink revstream.ExtractSink) *Reader {
	return &Reader{store: store, byOrdinal: make(map[int]*HistoryRevision), extractSink: extractSink}
}

// Apply applies rev's nodes against the previous revision's tree (or an
// empty tree for the first revision) and returns the resulting
// HistoryRevision.
func (r *Reader) Apply(rev *revstream.Revision) (*HistoryRevision, error) {
	var prevTree *objstore.Tree
	hidden := map[string]bool{}
	if r.current != nil {
		prevTree = r.current.Tree
		for k, v := range r.current.Hidden {
			hidden[k] = v
		}
	} else {
		prevTree = r.store.Finalize(objstore.NewTree()).(*objstore.Tree)
	}

	hr := &HistoryRevision{Rev: rev, Prev: r.current, Hidden: hidden}
	tree := prevTree
	for _, node := range rev.Nodes {
		var err error
		tree, err = r.applyNode(hr, tree, node)
		if err != nil {
			return nil, &NodeError{Action: string(node.Action), Kind: string(node.Kind), Path: node.Path, Err: err}
		}
	}
	hr.Tree = r.store.Finalize(tree).(*objstore.Tree)
	r.byOrdinal[rev.RevOrdinal] = hr
	r.current = hr
	return hr, nil
}

func (r *Reader) applyNode(hr *HistoryRevision, tree *objstore.Tree, node revstream.Node) (*objstore.Tree, error) {
	switch node.Action {
	case revstream.ActionAdd, revstream.ActionCopy:
		return r.applyAdd(tree, node)
	case revstream.ActionChange:
		return r.applyChange(tree, node)
	case revstream.ActionDelete:
		return tree.Delete(node.Path)
	case revstream.ActionReplace:
		t, err := tree.Delete(node.Path)
		if err != nil {
			return nil, err
		}
		return r.applyAdd(t, node)
	case revstream.ActionRename:
		t, err := r.applyAdd(tree, revstream.Node{
			Action:       revstream.ActionAdd,
			Kind:         node.Kind,
			Path:         node.Path,
			CopyFromPath: node.CopyFromPath,
			CopyFromRev:  node.CopyFromRev,
			TextContent:  node.TextContent,
		})
		if err != nil {
			return nil, err
		}
		return t.Delete(node.CopyFromPath)
	case revstream.ActionMerge:
		hr.PendingMerges = append(hr.PendingMerges, MergeRequest{
			TargetPath:       node.Path,
			SourceCopyPath:   node.CopyFromPath,
			SourceRevOrdinal: node.CopyFromRev,
		})
		return tree, nil
	case revstream.ActionLabel:
		hr.Labels = append(hr.Labels, LabelRequest{Path: node.Path, Label: node.Label})
		return tree, nil
	case revstream.ActionHide:
		hr.Hidden[node.Path] = true
		return tree, nil
	case revstream.ActionExtract:
		return tree, r.applyExtract(tree, node)
	default:
		return tree, nil
	}
}

func (r *Reader) applyAdd(tree *objstore.Tree, node revstream.Node) (*objstore.Tree, error) {
	if _, exists := tree.FindPath(node.Path); exists {
		return nil, &objstore.PathAlreadyExistsError{Path: node.Path}
	}
	if node.CopyFromPath != "" {
		obj, err := r.resolveCopySource(node)
		if err != nil {
			return nil, err
		}
		return tree.Set(node.Path, obj, 0), nil
	}
	if node.Kind == revstream.KindDir {
		return tree.Set(node.Path, r.store.Finalize(objstore.NewTree()).(*objstore.Tree), 0), nil
	}
	blob := r.store.MakeBlob(node.TextContent)
	return tree.Set(node.Path, r.store.Finalize(blob), 0), nil
}

func (r *Reader) applyChange(tree *objstore.Tree, node revstream.Node) (*objstore.Tree, error) {
	existing, ok := tree.FindPath(node.Path)
	if !ok {
		return nil, &objstore.PathNotFoundError{Path: node.Path}
	}
	if existing.IsDir() {
		return tree, nil // "dir change: target must exist and be a directory" — no content to replace.
	}
	blob := r.store.MakeBlob(node.TextContent)
	return tree.Set(node.Path, r.store.Finalize(blob), 0), nil
}

// resolveCopySource walks the referenced revision's root, falling back to
// inline content with a warning when the source is missing but text was
// supplied inline (spec.md §4.2).
func (r *Reader) resolveCopySource(node revstream.Node) (objstore.Object, error) {
	src, ok := r.byOrdinal[node.CopyFromRev]
	if ok {
		if obj, ok := src.Tree.FindPath(node.CopyFromPath); ok {
			return obj, nil
		}
	}
	if node.Kind != revstream.KindDir && node.TextContent != nil {
		logrus.Warnf("historyreader: copy source %q@%d not found for %q, falling back to inline content",
			node.CopyFromPath, node.CopyFromRev, node.Path)
		return r.store.Finalize(r.store.MakeBlob(node.TextContent)), nil
	}
	return nil, &CopySourceNotFoundError{Path: node.Path, CopyFromPath: node.CopyFromPath, CopyFromRev: node.CopyFromRev}
}

func (r *Reader) applyExtract(tree *objstore.Tree, node revstream.Node) error {
	if r.extractSink == nil {
		return nil
	}
	obj, ok := tree.FindPath(node.Path)
	if !ok {
		return &objstore.PathNotFoundError{Path: node.Path}
	}
	blob, ok := obj.(*objstore.Blob)
	if !ok {
		return &objstore.WrongKindError{Path: node.Path, Want: "file"}
	}
	return r.extractSink.Extract(node.Path, blob.Data())
}

// Package revstream defines the external revision reader interface of
// spec.md §6.1 and provides a reference JSONL-backed driver. Ingestion of
// the actual VSS on-disk format stays out of scope (spec.md §1): production
// use is expected to supply its own Reader implementation that talks to a
// real VSS database and only uses this package's types.
package revstream

// Action is one RevisionNode's action kind (spec.md §3).
type Action string

const (
	ActionAdd     Action = "add"
	ActionChange  Action = "change"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
	ActionRename  Action = "rename"
	ActionHide    Action = "hide"
	ActionCopy    Action = "copy"
	ActionMerge   Action = "merge"
	ActionLabel   Action = "label"
	ActionExtract Action = "extract"
)

// Kind is a RevisionNode's target kind.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
	KindNone Kind = "none"
)

// Node is one RevisionNode of spec.md §3.
type Node struct {
	Action       Action
	Kind         Kind
	Path         string
	CopyFromPath string
	CopyFromRev  int // 0 means "not set"
	TextContent  []byte
	Label        string
}

// Revision is one abstract Revision of spec.md §3.
type Revision struct {
	RevID      string
	RevOrdinal int
	Author     string
	DateTime   int64 // unix seconds; spec.md §6.1 "timestamps are monotonic but coarse (seconds)"
	Log        string
	Nodes      []Node
}

// Reader is the external revision stream interface of spec.md §6.1: a
// strictly ordered iterator. Next returns (nil, nil) at end of stream.
type Reader interface {
	Next() (*Revision, error)
	Close() error
}

// ExtractSink receives bytes for the "extract" action of spec.md §4.2,
// keeping filesystem I/O at the edge (spec.md §1 out-of-scope boundary).
type ExtractSink interface {
	Extract(path string, data []byte) error
}

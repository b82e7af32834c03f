// Package config defines the resolved project configuration object of
// spec.md §6.2. XML ingestion of the original VSS project definition is
// explicitly out of scope (spec.md §1); this package only models the
// resolved shape the core consumes, plus one concrete ambient loader
// (LoadTOML) so the CLI is runnable without an external XML front-end.
package config

import "github.com/BurntSushi/toml"

// MapPathRule is one ordered globspec entry of spec.md §4.3. An empty
// Refname forbids branch creation under Glob (an explicit block entry).
type MapPathRule struct {
	Glob              string             `toml:"glob"`
	Refname           string             `toml:"refname"`
	RevisionsRef      string             `toml:"revisions_ref"`
	LabelsRefRoot     string             `toml:"labels_ref_root"`
	DeleteIfMerged    bool               `toml:"delete_if_merged"`
	InjectFiles       []InjectFile       `toml:"inject_files"`
	IgnoreFiles       []string           `toml:"ignore_files"`
	FormatSpecs       []FormatSpec       `toml:"format_specifications"`
	EditMsgRules      []EditMsgRule      `toml:"edit_msg_rules"`
	SkipCommitRules   []SkipCommitRule   `toml:"skip_commit_rules"`
}

// InjectFile is a fixed blob forced into a branch's tree once it holds
// other content, and removed again when the branch returns to empty
// (spec.md §4.6 "inject_files").
type InjectFile struct {
	Path string `toml:"path"`
	Data []byte `toml:"data"`
}

// ChmodSpec matches a path to a non-default Git file mode
// (spec.md §4.4 "Mode is a fixed 100644 unless a configured chmod rule
// matches").
type ChmodSpec struct {
	Glob string `toml:"glob"`
	Mode uint32 `toml:"mode"`
}

// FormatSpec selects formatter settings for paths matching Glob
// (spec.md §4.9).
type FormatSpec struct {
	Glob           string `toml:"glob"`
	UseTabs        bool   `toml:"use_tabs"`
	TabSize        int    `toml:"tab_size"`
	IndentSize     int    `toml:"indent_size"`
	Continuation   string `toml:"continuation"` // "none" | "smart" | "extend"
	MaxToParen     int    `toml:"max_to_parenthesis"`
	RetabOnly      bool   `toml:"retab_only"`
	ReformatLine   bool   `toml:"reformat_line_comments"`
	ReformatBlock  bool   `toml:"reformat_block_comments"`
}

// EditMsgRule is one ordered regex substitution applied to a revision's log
// text (spec.md §4.6).
type EditMsgRule struct {
	Pattern     string `toml:"pattern"`
	Replacement string `toml:"replacement"`
	MaxCount    int    `toml:"max_count"`
	Terminal    bool   `toml:"terminal"`
}

// SkipCommitRule defers commits for revisions matching a range or rev-id
// (spec.md §4.6).
type SkipCommitRule struct {
	RevRange    string `toml:"rev_range"`
	RevID       string `toml:"rev_id"`
	ReplaceWith string `toml:"replace_with"`
}

// GitAttributesRule stages a fixed .gitattributes fragment under Glob
// (spec.md §4.4 ".gitattributes worktree").
type GitAttributesRule struct {
	Glob  string `toml:"glob"`
	Lines []string `toml:"lines"`
}

// RevisionAction is a configured per-revision tree mutation applied before
// branch trees are snapshotted (spec.md §4.4 step 2, §6.2
// "revision_actions keyed by rev or rev-id").
type RevisionAction struct {
	RevOrdinal int    `toml:"rev_ordinal"`
	RevID      string `toml:"rev_id"`
	Action     string `toml:"action"` // add | copy | delete | merge | extract
	Path       string `toml:"path"`
	CopyFrom   string `toml:"copy_from"`
}

// ProjectConfig is one resolved project in the declaration-ordered list
// spec.md §6.2 describes.
type ProjectConfig struct {
	Name                string              `toml:"name"`
	MapPaths            []MapPathRule       `toml:"map_paths"`
	ChmodSpecs          []ChmodSpec         `toml:"chmod_specifications"`
	GitAttributes       []GitAttributesRule `toml:"gitattributes"`
	IgnoreFiles         []string            `toml:"ignore_files"`
	FormatSpecs         []FormatSpec        `toml:"format_specifications"`
	EditMsgRules        []EditMsgRule       `toml:"edit_msg_list"`
	SkipCommitRules     []SkipCommitRule    `toml:"skip_commit_list"`
	EmptyPlaceholder    string              `toml:"empty_placeholder_name"`
	EmptyPlaceholderData []byte             `toml:"empty_placeholder_data"`
	RevisionActions     []RevisionAction    `toml:"revision_actions"`
	RefsMatcher         string              `toml:"refs_matcher"`
	AppendToRefsRoot    string              `toml:"append_to_refs_root"`
	PruneRefsRoot       string              `toml:"prune_refs_root"`
	RevisionIDTrailer   bool                `toml:"revision_id_trailer"`
	ChangeIDTrailer     bool                `toml:"change_id_trailer"`
	CombineMaxSeconds   int                 `toml:"combine_max_seconds"`
}

// Root is the top-level resolved configuration: the declaration-ordered
// list of projects (spec.md §6.2).
type Root struct {
	Projects []ProjectConfig `toml:"project"`
}

// LoadTOML loads a Root from a TOML file, the ambient native config format
// this repository accepts alongside (not instead of) an external XML
// bridge, which stays out of scope (spec.md §1.3 of SPEC_FULL.md).
func LoadTOML(path string) (*Root, error) {
	var root Root
	if _, err := toml.DecodeFile(path, &root); err != nil {
		return nil, err
	}
	for i := range root.Projects {
		if root.Projects[i].CombineMaxSeconds == 0 {
			root.Projects[i].CombineMaxSeconds = 2 // spec.md §4.5 default
		}
	}
	return &root, nil
}

package projecttree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vss2git/vss2git/internal/objstore"
)

// ComposeMessage builds a commit message from a BranchRev's accumulated
// Props paragraphs, auto-generating a short description when the first
// paragraph is empty (spec.md §4.4 "Commit message composition").
func ComposeMessage(br *BranchRev, diff []objstore.DiffEntry, revisionIDTrailer, changeIDTrailer bool) string {
	paragraphs := dedupPrefixes(propsToParagraphs(br.Props))
	if len(paragraphs) == 0 || paragraphs[0] == "" {
		auto := autoDescribe(diff)
		if len(paragraphs) == 0 {
			paragraphs = []string{auto}
		} else {
			paragraphs[0] = auto
		}
	}
	msg := strings.Join(paragraphs, "\n\n")

	var trailers []string
	if revisionIDTrailer && len(br.Props) > 0 {
		trailers = append(trailers, fmt.Sprintf("VSS-revision: %s", br.Props[len(br.Props)-1].RevID))
	}
	if changeIDTrailer {
		trailers = append(trailers, fmt.Sprintf("Change-Id: I%s", changeIDFor(br)))
	}
	if len(trailers) > 0 {
		msg = msg + "\n\n" + strings.Join(trailers, "\n")
	}
	return msg
}

func propsToParagraphs(props []RevisionProps) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, strings.TrimRight(p.Log, "\n"))
	}
	return out
}

// dedupPrefixes drops a paragraph that is an exact prefix of the one after
// it, keeping the longer one: the "deduplicating exact prefix matches" rule of
// spec.md §4.4.
func dedupPrefixes(paragraphs []string) []string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if len(out) > 0 && strings.HasPrefix(p, out[len(out)-1]) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// changeIDFor derives a stable-looking hex tail for the Change-Id trailer
// from the branch revision's tree hash, so repeated runs against the same
// input produce the same IDs.
func changeIDFor(br *BranchRev) string {
	if br.Tree == nil {
		return "0000000000000000000000000000000000000000"
	}
	return br.Tree.Hash().String()
}

// renamePair is a same-content add+delete detected as a rename
// (spec.md §8 scenario 3 "Rename detection").
type renamePair struct {
	from, to string
}

// autoDescribe produces the spec's "auto-generated short description"
// when a revision's log paragraph is empty: added/deleted/changed files
// and directories, with renames detected by identical non-empty blob
// hashes (spec.md §4.4, §8 scenario 3).
func autoDescribe(diff []objstore.DiffEntry) string {
	var added, deleted, changed []string
	deletedBlobs := map[objstore.Hash]string{}
	addedBlobs := map[objstore.Hash]string{}

	for _, e := range diff {
		switch {
		case e.OldObject == nil && e.NewObject != nil:
			added = append(added, e.Path)
			if b, ok := e.NewObject.(*objstore.Blob); ok && len(b.Data()) > 0 {
				addedBlobs[b.Hash()] = e.Path
			}
		case e.OldObject != nil && e.NewObject == nil:
			deleted = append(deleted, e.Path)
			if b, ok := e.OldObject.(*objstore.Blob); ok && len(b.Data()) > 0 {
				deletedBlobs[b.Hash()] = e.Path
			}
		default:
			changed = append(changed, e.Path)
		}
	}

	var renames []renamePair
	usedAdds := map[string]bool{}
	usedDeletes := map[string]bool{}
	for hash, from := range deletedBlobs {
		if to, ok := addedBlobs[hash]; ok {
			renames = append(renames, renamePair{from: from, to: to})
			usedAdds[to] = true
			usedDeletes[from] = true
		}
	}
	sort.Slice(renames, func(i, j int) bool { return renames[i].from < renames[j].from })

	added = without(added, usedAdds)
	deleted = without(deleted, usedDeletes)
	sort.Strings(added)
	sort.Strings(deleted)
	sort.Strings(changed)

	var lines []string
	for _, r := range renames {
		lines = append(lines, fmt.Sprintf("Renamed %s to %s", r.from, r.to))
	}
	if len(added) > 0 {
		lines = append(lines, "Added "+strings.Join(added, ", "))
	}
	if len(deleted) > 0 {
		lines = append(lines, "Deleted "+strings.Join(deleted, ", "))
	}
	if len(changed) > 0 {
		lines = append(lines, "Changed "+strings.Join(changed, ", "))
	}
	if len(lines) == 0 {
		return "No content changes"
	}
	return strings.Join(lines, "\n")
}

func without(items []string, exclude map[string]bool) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !exclude[it] {
			out = append(out, it)
		}
	}
	return out
}

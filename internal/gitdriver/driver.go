package gitdriver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Identity is a Git author/committer identity plus a timestamp, used by
// CommitTree and Tag.
type Identity struct {
	Name  string
	Email string
	When  int64 // unix seconds, matching the coarse VSS timestamps of spec.md §6.1
	TZ    string // e.g. "+0000"
}

func (id Identity) env(prefix string) []string {
	return []string{
		prefix + "_NAME=" + id.Name,
		prefix + "_EMAIL=" + id.Email,
		fmt.Sprintf("%s_DATE=%d %s", prefix, id.When, id.TZ),
	}
}

// Driver is a stateless-per-call facade over a single Git repository's
// `--git-dir`. Per-branch index file and work tree isolation (spec.md §4.4
// ".gitattributes worktree", §4.10 "GIT_INDEX_FILE=.git.index<index_seq>")
// is supplied by the caller via Env on each call, so one Driver safely
// serves every branch.
type Driver struct {
	gitDir  string
	environ []string
	verbose bool
	sh      *shepherd
}

// New returns a Driver bound to gitDir (a `--git-dir`, typically bare).
func New(gitDir string, environ []string, verbose bool) *Driver {
	return &Driver{gitDir: gitDir, environ: environ, verbose: verbose, sh: newShepherd()}
}

// Cancel terminates every in-flight subprocess this Driver has started,
// implementing the eager cancellation of spec.md §5.
func (d *Driver) Cancel() {
	d.sh.KillAll()
}

// Env builds the environment for an invocation scoped to one branch's index
// file and optional work tree (spec.md §4.4, §4.10, §6.3).
type Env struct {
	IndexFile string
	WorkTree  string
}

func (e Env) vars() []string {
	var out []string
	if e.IndexFile != "" {
		out = append(out, "GIT_INDEX_FILE="+e.IndexFile)
	}
	if e.WorkTree != "" {
		out = append(out, "GIT_WORK_TREE="+e.WorkTree)
	}
	return out
}

func (d *Driver) opts(env Env, stdin []byte) *RunOpts {
	return &RunOpts{
		Dir:      d.gitDir,
		Environ:  d.environ,
		ExtraEnv: append([]string{"GIT_DIR=" + d.gitDir, "core.safecrlf=false"}, env.vars()...),
		Stdin:    stdin,
		Verbose:  d.verbose,
	}
}

func (d *Driver) git(ctx context.Context, env Env, stdin []byte, args ...string) ([]byte, error) {
	return d.sh.run(ctx, d.opts(env, stdin), "git", args...)
}

// HashObjectOpts controls how HashObject invokes `git hash-object`.
type HashObjectOpts struct {
	// Path, when set, is passed as --path=P so .gitattributes filters apply
	// as if the blob lived there.
	Path string
	// NoFilters disables clean/smudge filter application entirely.
	NoFilters bool
}

// HashObject runs `git hash-object --stdin -w -t blob`, returning the
// resulting hex OID (spec.md §6.3).
func (d *Driver) HashObject(ctx context.Context, env Env, data []byte, opt HashObjectOpts) (string, error) {
	args := []string{"hash-object", "--stdin", "-w", "-t", "blob"}
	if opt.NoFilters {
		args = append(args, "--no-filters")
	} else if opt.Path != "" {
		args = append(args, "--path="+opt.Path)
	}
	out, err := d.git(ctx, env, data, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IndexLine is one line of `git update-index --index-info` input. A zero
// SHA1 with mode "000000" (see NewDeleteLine) marks a deletion, matching spec.md §6.3's
// "000000 0{40} 0\t<path>\n" form.
type IndexLine struct {
	Mode string
	SHA1 string
	Path string
}

const deletedSHA1 = "0000000000000000000000000000000000000000"

// NewDeleteLine builds the update-index line deleting path.
func NewDeleteLine(path string) IndexLine {
	return IndexLine{Mode: "000000", SHA1: deletedSHA1, Path: path}
}

// UpdateIndex runs `git update-index --add --force-remove --index-info`
// against env.IndexFile with the given lines (spec.md §6.3).
func (d *Driver) UpdateIndex(ctx context.Context, env Env, lines []IndexLine) error {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, l := range lines {
		fmt.Fprintf(&buf, "%s %s 0\t%s\n", l.Mode, l.SHA1, l.Path)
	}
	_, err := d.git(ctx, env, buf.Bytes(), "update-index", "--add", "--force-remove", "--index-info")
	return err
}

// ReadTreeReset runs `git read-tree -i --reset <treeish>` against
// env.IndexFile, used by the staging-base selection of spec.md §4.4 to
// repopulate the in-process index from a merge parent's tree.
func (d *Driver) ReadTreeReset(ctx context.Context, env Env, treeish string) error {
	_, err := d.git(ctx, env, nil, "read-tree", "-i", "--reset", treeish)
	return err
}

// WriteTree runs `git write-tree` against env.IndexFile, returning the new
// tree's hex OID.
func (d *Driver) WriteTree(ctx context.Context, env Env) (string, error) {
	out, err := d.git(ctx, env, nil, "write-tree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitTree runs `git commit-tree <tree> [-p <parent>]* -m <message>` with
// GIT_AUTHOR_*/GIT_COMMITTER_* environment, returning the new commit's hex
// OID.
func (d *Driver) CommitTree(ctx context.Context, tree string, parents []string, message string, author, committer Identity) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)
	opt := d.opts(Env{}, nil)
	opt.ExtraEnv = append(opt.ExtraEnv, author.env("GIT_AUTHOR")...)
	opt.ExtraEnv = append(opt.ExtraEnv, committer.env("GIT_COMMITTER")...)
	out, err := d.sh.run(ctx, opt, "git", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Tag writes an annotated, forced tag via `git tag -a -f`, using tagger's
// identity for the tag's author/date (spec.md §4.7).
func (d *Driver) Tag(ctx context.Context, name, target, message string, tagger Identity) error {
	opt := d.opts(Env{}, nil)
	opt.ExtraEnv = append(opt.ExtraEnv, tagger.env("GIT_COMMITTER")...)
	_, err := d.sh.run(ctx, opt, "git", "tag", "-a", "-f", name, target, "-m", message)
	return err
}

// UpdateLightweightRef writes a lightweight (non-annotated) ref directly,
// used for labels applied to revisions without a non-empty message
// (spec.md §4.7).
func (d *Driver) UpdateLightweightRef(ctx context.Context, name, target string) error {
	_, err := d.git(ctx, Env{}, nil, "update-ref", name, target)
	return err
}

// RefUpdate is one entry of a final batched `update-ref --stdin` transaction
// (spec.md §5 "Ref updates").
type RefUpdate struct {
	Refname string
	Target  string // empty means delete
}

// UpdateRefBatch applies deletes then updates as two `update-ref --stdin`
// transactions, so a newly created ref can replace a deleted directory of
// refs (spec.md §5).
func (d *Driver) UpdateRefBatch(ctx context.Context, updates []RefUpdate) error {
	var deletes, sets []RefUpdate
	for _, u := range updates {
		if u.Target == "" {
			deletes = append(deletes, u)
		} else {
			sets = append(sets, u)
		}
	}
	if len(deletes) > 0 {
		if err := d.runRefTransaction(ctx, deletes); err != nil {
			return err
		}
	}
	if len(sets) > 0 {
		if err := d.runRefTransaction(ctx, sets); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runRefTransaction(ctx context.Context, updates []RefUpdate) error {
	var buf bytes.Buffer
	buf.WriteString("start\n")
	for _, u := range updates {
		if u.Target == "" {
			fmt.Fprintf(&buf, "delete %s\n", u.Refname)
		} else {
			fmt.Fprintf(&buf, "update %s %s\n", u.Refname, u.Target)
		}
	}
	buf.WriteString("commit\n")
	_, err := d.git(ctx, Env{}, buf.Bytes(), "update-ref", "--stdin")
	return err
}

// RefInfo is one row of `for-each-ref` output.
type RefInfo struct {
	Refname string
	OID     string
	Type    string
}

// ForEachRef runs `git for-each-ref` filtered by pattern.
func (d *Driver) ForEachRef(ctx context.Context, pattern string) ([]RefInfo, error) {
	out, err := d.git(ctx, Env{}, nil, "for-each-ref", "--format=%(objectname) %(objecttype) %(refname)", pattern)
	if err != nil {
		return nil, err
	}
	var refs []RefInfo
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			continue
		}
		refs = append(refs, RefInfo{OID: fields[0], Type: fields[1], Refname: fields[2]})
	}
	return refs, nil
}

// Show runs `git show <ref>`, used to recover a tag's message for log
// continuation (spec.md §4.3).
func (d *Driver) Show(ctx context.Context, ref string) ([]byte, error) {
	return d.git(ctx, Env{}, nil, "show", "-s", "--format=%B", ref)
}

package projecttree

import (
	"context"
	"fmt"

	"github.com/vss2git/vss2git/internal/charset"
	"github.com/vss2git/vss2git/internal/config"
	"github.com/vss2git/vss2git/internal/formatter"
	"github.com/vss2git/vss2git/internal/gitdriver"
	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/scheduler"
)

// HashPool bounds concurrent `git hash-object` subprocesses to
// spec.md §4.10's "max(4, min(16, cores))", shared by every branch's
// commitBranch call since hashing has no per-branch state.
type HashPool struct {
	pool *scheduler.Pool
}

// NewHashPool starts a pool sized per spec.md §4.10.
func NewHashPool(ctx context.Context) *HashPool {
	return &HashPool{pool: scheduler.NewPool(ctx, scheduler.HashingPoolSize())}
}

// Close drains and stops the pool.
func (h *HashPool) Close() {
	h.pool.Close()
}

// hashStageResult is one stage entry's outcome after async hashing.
type hashStageResult struct {
	line gitdriver.IndexLine
	err  error
}

// stageDiff submits one `hash-object` task per non-directory add/change in
// diff to the hash pool, running them concurrently (spec.md §4.10
// "Hashing pool"), and collects the resulting update-index lines plus any
// delete lines (which need no hashing) — all applied back on the calling
// goroutine, preserving the "ObjectStore/PathTree mutation is main-thread
// only" rule of spec.md §5 since nothing here mutates shared state from a
// worker.
func stageDiff(ctx context.Context, driver *gitdriver.Driver, pool *HashPool, env gitdriver.Env, branch *Branch, mode func(string) uint32, diff []objstore.DiffEntry, disableFormatting bool, memo *gitdriver.HashMemo, gitattrsSHA1 objstore.Hash) ([]gitdriver.IndexLine, error) {
	lines := make([]gitdriver.IndexLine, 0, len(diff))
	var toHash []objstore.DiffEntry
	for _, d := range diff {
		if d.NewObject == nil {
			lines = append(lines, gitdriver.NewDeleteLine(d.Path))
			continue
		}
		if d.NewObject.IsDir() {
			continue
		}
		toHash = append(toHash, d)
	}
	if len(toHash) == 0 {
		return lines, nil
	}
	if pool == nil {
		for _, d := range toHash {
			l, err := hashOne(ctx, driver, env, branch, mode, d, disableFormatting, memo, gitattrsSHA1)
			if err != nil {
				return nil, err
			}
			lines = append(lines, l)
		}
		return lines, nil
	}

	exec := scheduler.New()
	results := make([]hashStageResult, len(toHash))
	for i, d := range toHash {
		i, d := i, d
		id := exec.AsyncNode(pool.pool, "hash:"+d.Path, func() error {
			l, err := hashOne(ctx, driver, env, branch, mode, d, disableFormatting, memo, gitattrsSHA1)
			results[i] = hashStageResult{line: l, err: err}
			return err
		})
		exec.Ready(id)
	}
	if err := scheduler.RunAsync(ctx, exec, pool.pool); err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		lines = append(lines, r.line)
	}
	return lines, nil
}

func hashOne(ctx context.Context, driver *gitdriver.Driver, env gitdriver.Env, branch *Branch, mode func(string) uint32, d objstore.DiffEntry, disableFormatting bool, memo *gitdriver.HashMemo, gitattrsSHA1 objstore.Hash) (gitdriver.IndexLine, error) {
	blob := d.NewObject.(*objstore.Blob)

	var fs config.FormatSpec
	var matched bool
	if !disableFormatting {
		fs, matched = branch.FormatFor(d.Path)
	}

	compute := func(ctx context.Context) (string, error) {
		data := blob.Data()
		if matched {
			data = reformatBlob(data, fs)
		}
		return driver.HashObject(ctx, env, data, gitdriver.HashObjectOpts{Path: d.Path})
	}

	var sha1 string
	var err error
	if memo != nil {
		var formatterSHA1 *[20]byte
		if matched {
			h := objstore.HashBytes([]byte(fs.Glob + "|" + fs.Continuation + "|" + fmt.Sprint(fs.UseTabs, fs.TabSize, fs.IndentSize, fs.MaxToParen, fs.RetabOnly, fs.ReformatLine, fs.ReformatBlock)))
			fixed := [20]byte(h)
			formatterSHA1 = &fixed
		}
		rawSHA1 := [20]byte(blob.Hash())
		key := gitdriver.MemoKey(rawSHA1, [20]byte(gitattrsSHA1), formatterSHA1, fs.Glob, d.Path)
		sha1, err = memo.Get(ctx, key, compute)
	} else {
		sha1, err = compute(ctx)
	}
	if err != nil {
		return gitdriver.IndexLine{}, err
	}
	return gitdriver.IndexLine{Mode: fmt.Sprintf("%o", mode(d.Path)), SHA1: sha1, Path: d.Path}, nil
}

// reformatBlob applies a matched format_specifications entry's
// reindentation to blob content before it is hashed into the git object
// store (spec.md §4.9); the objstore tree itself keeps the untouched VSS
// content so diffing and content-addressing are unaffected.
func reformatBlob(data []byte, fs config.FormatSpec) []byte {
	cs := charset.Detect(data)
	decoded, err := charset.Decode(data, cs)
	if err != nil {
		return data
	}
	settings := formatter.Settings{
		UseTabs:       fs.UseTabs,
		TabSize:       fs.TabSize,
		IndentSize:    fs.IndentSize,
		Continuation:  formatter.Continuation(fs.Continuation),
		MaxToParen:    fs.MaxToParen,
		RetabOnly:     fs.RetabOnly,
		ReformatLine:  fs.ReformatLine,
		ReformatBlock: fs.ReformatBlock,
	}
	formatted := formatter.Format(decoded, settings)
	encoded, err := charset.Encode(formatted, cs)
	if err != nil {
		return data
	}
	return encoded
}

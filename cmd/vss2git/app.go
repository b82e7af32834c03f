package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/vss2git/vss2git/internal/authormap"
	"github.com/vss2git/vss2git/internal/config"
	"github.com/vss2git/vss2git/internal/gitdriver"
	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/progressbar"
	"github.com/vss2git/vss2git/internal/projecttree"
	"github.com/vss2git/vss2git/internal/revstream"
	"github.com/vss2git/vss2git/internal/runlog"
	"github.com/vss2git/vss2git/internal/scheduler"
	"github.com/vss2git/vss2git/internal/sha1cache"
)

// errInterrupted marks a run cancelled by SIGINT/SIGTERM (spec.md §6.5
// exit code 130).
var errInterrupted = errors.New("vss2git: interrupted")

// Run drives one end-to-end conversion: load config, resolve the target
// project, open every ambient store (authors, sha1 cache, run log), wire
// the revision stream into a projecttree.Engine, and persist the ambient
// stores on exit (spec.md §6).
func (a *App) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, err := config.LoadTOML(a.Config)
	if err != nil {
		return err
	}
	project, err := a.selectProject(root)
	if err != nil {
		return err
	}

	authors, err := authormap.Load(a.AuthorMap)
	if err != nil {
		return err
	}
	cache, err := sha1cache.Load(a.Sha1Cache)
	if err != nil {
		return err
	}

	var extract revstream.ExtractSink
	if a.ExtractRoot != "" {
		extract = &revstream.FileExtractSink{Root: a.ExtractRoot}
	}

	store := objstore.NewStore()
	driver := gitdriver.New(a.GitDir, os.Environ(), g.Verbose)

	engine, err := projecttree.New(project, driver, authors, store, extract)
	if err != nil {
		return err
	}
	if a.NoFormat {
		engine.DisableFormatting()
	}
	workRoot := a.WorkdirRoot
	if workRoot == "" {
		dir, err := os.MkdirTemp("", "vss2git-worktree-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		workRoot = dir
	}
	engine.WithWorkRoot(workRoot)

	hashPool := projecttree.NewHashPool(ctx)
	defer hashPool.Close()
	engine.WithHashPool(hashPool)

	memo, err := gitdriver.NewHashMemo(cache)
	if err != nil {
		return err
	}
	defer memo.Close()
	engine.WithHashMemo(memo)

	runLog, err := runlog.Open(a.RunLogPath)
	if err != nil {
		return err
	}
	defer runLog.Close()
	logExec := scheduler.New()
	serializer := runlog.NewSerializer(runLog, logExec)

	// progressbar.New already no-ops when stderr isn't a terminal;
	// a.Progress (--progress) is not consulted, so nothing forces the bar
	// on for a redirected stderr.
	bar := progressbar.New("converting", 0)

	engine.OnCommit(func(branch *projecttree.Branch, br *projecttree.BranchRev) {
		g.tick("commit %s @%d -> %s", branch.Refname, br.RevOrdinal, br.Commit)
		_ = serializer.Enqueue(
			fmt.Sprintf("%s @%d", branch.Refname, br.RevOrdinal),
			fmt.Sprintf("rev_id=%s commit=%s", br.RevID, br.Commit),
		)
		_ = logExec.Drain()
		bar.Increment()
	})

	reader, closeReader, err := a.openReader()
	if err != nil {
		return err
	}
	defer closeReader()

	runErr := engine.Run(ctx, reader)
	bar.Wait()
	if runErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return errInterrupted
		}
		return runErr
	}

	if err := authormap.Save(a.AuthorMap, authors); err != nil {
		return err
	}
	if cache.Dirty() {
		if err := cache.Save(a.Sha1Cache); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) selectProject(root *config.Root) (config.ProjectConfig, error) {
	if a.Project != "" {
		for _, p := range root.Projects {
			if p.Name == a.Project {
				return p, nil
			}
		}
		return config.ProjectConfig{}, fmt.Errorf("vss2git: no project named %q in %s", a.Project, a.Config)
	}
	if len(root.Projects) == 1 {
		return root.Projects[0], nil
	}
	return config.ProjectConfig{}, fmt.Errorf("vss2git: %s defines %d projects, specify --project", a.Config, len(root.Projects))
}

// openReader opens the configured revision-stream input. The end-revision
// cutoff of spec.md §6.5 is applied by wrapping the base JSONL reader;
// the --verbosity level is not consulted here.
func (a *App) openReader() (revstream.Reader, func(), error) {
	f, err := os.Open(a.Revisions)
	if err != nil {
		return nil, func() {}, err
	}
	base := revstream.NewJSONLReader(f)
	var r revstream.Reader = base
	if a.EndRevision > 0 {
		r = &cutoffReader{Reader: base, limit: a.EndRevision}
	}
	return r, func() { _ = base.Close() }, nil
}

// cutoffReader stops a revision stream once RevOrdinal exceeds limit
// (spec.md §6.5 "--end-revision").
type cutoffReader struct {
	revstream.Reader
	limit int
}

func (c *cutoffReader) Next() (*revstream.Revision, error) {
	rev, err := c.Reader.Next()
	if err != nil || rev == nil {
		return rev, err
	}
	if rev.RevOrdinal > c.limit {
		return nil, nil
	}
	return rev, nil
}

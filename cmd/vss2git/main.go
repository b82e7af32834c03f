package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vss2git/vss2git/internal/gitdriver"
	"github.com/vss2git/vss2git/internal/historyreader"
	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/projecttree"
	"github.com/vss2git/vss2git/internal/revstream"
)

// App is the flat, subcommand-less CLI surface of spec.md §6.5: select an
// input revision stream and output Git repository, a resolved project
// configuration, and the verbosity/progress/formatting toggles. The
// revision-id and Change-Id trailers are project configuration settings,
// not CLI flags.
type App struct {
	Globals

	Config    string `arg:"" name:"config" type:"existingfile" help:"Resolved project configuration (TOML)."`
	Revisions string `arg:"" name:"revisions" type:"existingfile" help:"Revision-stream JSONL export."`
	GitDir    string `arg:"" name:"gitdir" help:"Output bare Git repository."`

	Project string `name:"project" help:"Restrict to one named project when config defines several."`

	AuthorMap   string `name:"author-map" type:"path" help:"Author map JSON file (created if missing)."`
	Sha1Cache   string `name:"sha1-cache" type:"path" help:"Persisted text-blob SHA-1 cache file."`
	RunLogPath  string `name:"log-file" type:"path" default:"vss2git-run.log" help:"Run log file; the prior one is archived."`
	ExtractRoot string `name:"extract-root" type:"path" help:"Filesystem root for 'extract' actions."`
	WorkdirRoot string `name:"workdir-root" type:"path" help:"Base directory for per-branch .gitattributes worktrees (temp dir if unset)."`

	EndRevision int `name:"end-revision" help:"Stop after this revision ordinal (0 = no limit)."`

	NoFormat bool   `name:"no-format" help:"Disable indentation reformatting globally, overriding per-path format_specifications."`
	Progress bool   `name:"progress" help:"Has no effect; the progress bar is shown only when stderr is a terminal."`
	Verbosity string `name:"verbosity" enum:"dump,dump_all,revs,commits,format,format-verbose" default:"commits" help:"Log verbosity."`
}

// Exit codes of spec.md §6.5: 0 success, 1 input not found, 128
// parse/config errors, 130 user interrupt.
const (
	exitOK            = 0
	exitInputNotFound = 1
	exitParseOrConfig = 128
	exitInterrupted   = 130
)

func main() {
	var app App
	parser := kong.Must(&app,
		kong.Name("vss2git"),
		kong.Description("Convert a VSS revision history into a Git repository."),
		kong.UsageOnError(),
		kong.Vars{"version": versionString},
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&app.Globals); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var pathNotFound *objstore.PathNotFoundError
	switch {
	case errors.Is(err, errInterrupted):
		return exitInterrupted
	case errors.Is(err, os.ErrNotExist), errors.As(err, &pathNotFound):
		return exitInputNotFound
	}

	var invalidConfig *projecttree.InvalidConfigError
	var nodeErr *historyreader.NodeError
	var gitErr *gitdriver.GitSubprocessError
	var parseErr *revstream.ParseError
	switch {
	case errors.As(err, &invalidConfig), errors.As(err, &nodeErr), errors.As(err, &gitErr), errors.As(err, &parseErr):
		return exitParseOrConfig
	}

	fmt.Fprintf(os.Stderr, "vss2git: %v\n", err)
	return exitParseOrConfig
}

package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/vss2git/vss2git/internal/xlog"
)

const versionString = "vss2git 0.1.0"

// Globals holds the flags every subcommand-less invocation shares, in the
// shape of the teacher's cmd/zeta-mc Globals (spec.md §6.5 "--debug",
// "--verbose").
type Globals struct {
	Verbose bool        `short:"V" name:"verbose" help:"Make the operation more talkative."`
	Debug   bool        `name:"debug" help:"Enable debug mode; log step timings."`
	Version VersionFlag `short:"v" name:"version" help:"Show version number and quit."`

	tracker *xlog.Tracker
}

func (g *Globals) tick(format string, args ...any) {
	if g.tracker == nil {
		g.tracker = xlog.NewTracker(g.Debug)
	}
	g.tracker.StepNext(format, args...)
}

// VersionFlag matches the teacher's kong.BeforeApply pattern for an
// eager, non-required version flag.
type VersionFlag bool

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(versionString)
	app.Exit(0)
	return nil
}

// Package progressbar drives a per-run revision-count progress bar,
// grounded on pkg/zeta/transfer.go's mpb.New/mpb.BarStyle usage and
// pkg/zeta/misc.go's isatty terminal detection. A converter run has one
// natural unit of progress (revisions applied), unlike the teacher's
// per-object transfer bars, so this package exposes a single bar rather
// than one per item.
package progressbar

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// IsInteractive reports whether stderr is a real terminal, matching
// pkg/zeta/misc.go's isatty.IsTerminal || isatty.IsCygwinTerminal check.
func IsInteractive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func width() int {
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 {
		if w > 80 {
			return 80
		}
		return w
	}
	return 80
}

// Bar tracks progress over a known total revision count. When stderr is
// not interactive, operations are no-ops so piped/CI output stays clean.
type Bar struct {
	p        *mpb.Progress
	bar      *mpb.Bar
	disabled bool
}

// New starts a bar titled task over total units (e.g. revision count).
func New(task string, total int64) *Bar {
	if !IsInteractive() {
		return &Bar{disabled: true}
	}
	w := width()
	p := mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithAutoRefresh(),
		mpb.WithWidth(w),
	)
	bar := p.New(total,
		mpb.BarStyle().Filler(ansi.Color("#", "cyan")).Padding(" "),
		mpb.PrependDecorators(
			decor.Name(task, decor.WC{W: len(task), C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.BarWidth(w),
		mpb.AppendDecorators(
			decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 30), "done"),
		),
	)
	return &Bar{p: p, bar: bar}
}

// Increment advances the bar by one unit (one revision processed).
func (b *Bar) Increment() {
	if b.disabled {
		return
	}
	b.bar.Increment()
}

// SetTotal corrects the total once the true revision count is known, e.g.
// after filtering by a configured revision range.
func (b *Bar) SetTotal(total int64) {
	if b.disabled {
		return
	}
	b.bar.SetTotal(total, false)
}

// Wait blocks until the bar has finished rendering, matching mpb's
// shutdown contract for the underlying mpb.Progress.
func (b *Bar) Wait() {
	if b.disabled {
		return
	}
	b.p.Wait()
}

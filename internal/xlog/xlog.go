// Package xlog wraps logrus with the conventions spec.md's ambient logging
// section expects: warnings for recoverable fallbacks (e.g. copy-source
// resolution falling back to inline content) and a debug-mode step tracker
// for timing long phases. Grounded on the teacher's modules/trace package
// (trace.Errorf's logrus.Error call, trace.Tracker's StepNext).
package xlog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
}

// Warnf logs a recoverable condition the run continues past, such as a
// copy-source miss falling back to inline content (spec.md §4.2).
func Warnf(format string, args ...any) {
	logrus.Warnf(format, args...)
}

// Errorf logs at error level and returns an error carrying the same
// message, matching the teacher's trace.Errorf shape for call sites that
// both log and propagate.
func Errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	logrus.Error(msg)
	return fmt.Errorf("%s", msg)
}

// Tracker prints elapsed-time markers between named steps when debug mode
// is enabled, for diagnosing which phase of a run (scan, build, format,
// write) is slow. Grounded on modules/trace.Tracker.
type Tracker struct {
	debug bool
	last  time.Time
}

// NewTracker returns a Tracker; StepNext is a no-op unless debug is true.
func NewTracker(debug bool) *Tracker {
	return &Tracker{debug: debug, last: time.Now()}
}

// StepNext reports the time elapsed since the previous StepNext call (or
// since the Tracker was created) under the given label.
func (t *Tracker) StepNext(format string, args ...any) {
	if !t.debug {
		return
	}
	label := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	now := time.Now()
	fmt.Fprintf(os.Stderr, "\x1b[35m* %s use time: %v\x1b[0m\n", label, now.Sub(t.last))
	t.last = now
}

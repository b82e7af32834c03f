// Package gitdriver is the thin facade over a child `git` process described
// by spec.md §4 "GitDriver" and §6.3: hash-object, update-index, read-tree,
// write-tree, commit-tree, tag, update-ref --stdin, for-each-ref, show. The
// process-management layer (Command/shepherd) is adapted from the teacher's
// modules/command package.
package gitdriver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
)

// RunOpts configures one subprocess invocation.
type RunOpts struct {
	Dir      string
	Environ  []string
	ExtraEnv []string
	Stdin    []byte
	Verbose  bool
}

// shepherd tracks and can terminate every in-flight git subprocess, so that
// scheduler cancellation (spec.md §5 "Cancellation propagates eagerly") can
// stop work promptly instead of waiting for every subprocess to finish on
// its own.
type shepherd struct {
	mu       sync.Mutex
	children map[*exec.Cmd]struct{}
}

func newShepherd() *shepherd {
	return &shepherd{children: make(map[*exec.Cmd]struct{})}
}

func (s *shepherd) track(cmd *exec.Cmd) {
	s.mu.Lock()
	s.children[cmd] = struct{}{}
	s.mu.Unlock()
}

func (s *shepherd) untrack(cmd *exec.Cmd) {
	s.mu.Lock()
	delete(s.children, cmd)
	s.mu.Unlock()
}

// KillAll terminates every tracked subprocess's process group. Called when
// the scheduler cancels a run (spec.md §5).
func (s *shepherd) KillAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cmd := range s.children {
		killProcessGroup(cmd)
	}
}

// run executes name+args under opt, returning its stdout (stderr is
// captured into the returned error only on failure).
func (s *shepherd) run(ctx context.Context, opt *RunOpts, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opt.Dir
	if len(opt.Environ) > 0 {
		cmd.Env = append(cmd.Env, opt.Environ...)
	}
	cmd.Env = append(cmd.Env, opt.ExtraEnv...)
	if len(opt.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(opt.Stdin)
	}
	setSysProcAttribute(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if opt.Verbose {
		logrus.Debugf("gitdriver: %s", shellquote.Join(append([]string{name}, args...)...))
	}

	start := time.Now()
	s.track(cmd)
	err := cmd.Run()
	s.untrack(cmd)

	if err != nil {
		return nil, &GitSubprocessError{
			Args:     append([]string{name}, args...),
			Stderr:   strings.TrimSpace(stderr.String()),
			Duration: time.Since(start),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}

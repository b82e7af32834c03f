// Package runlog implements the append-only run log of spec.md §6.4: UTF-8
// text, one section per revision, emitted in strict revision order via a
// log-serialiser dependency chain (spec.md §4.10, §6.4). Prior runs are
// rotated into a gzip-compressed archive rather than truncated, using
// klauspost/compress the way modules/streamio wraps it for the teacher's
// other stream formats.
package runlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/vss2git/vss2git/internal/scheduler"
)

// Log is an append-only, revision-ordered text log.
type Log struct {
	f *os.File
	w *bufio.Writer
}

// Open rotates any existing non-empty file at path into "<path>.<unixnano>.gz" and
// opens a fresh one for appending.
func Open(path string) (*Log, error) {
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		if err := archive(path); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &Log{f: f, w: bufio.NewWriter(f)}, nil
}

func archive(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	archivePath := fmt.Sprintf("%s.%d.gz", path, time.Now().UnixNano())
	dst, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// WriteSection appends one revision's section, trailed by a blank line.
func (l *Log) WriteSection(header string, body string) error {
	if _, err := fmt.Fprintf(l.w, "=== %s ===\n%s\n\n", header, body); err != nil {
		return err
	}
	return l.w.Flush()
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Close()
}

// Serializer chains WriteSection calls through an internal/scheduler
// Executor so that sections land in strict revision order even though the
// revisions producing them may finish their own dependency-graph work out
// of order (spec.md §6.4 "a log-serialiser dependency chain").
type Serializer struct {
	log    *Log
	exec   *scheduler.Executor
	lastID int
	has    bool
}

// NewSerializer wires a Serializer on top of an existing Executor so log
// nodes participate in the same graph as the revision's other work.
func NewSerializer(log *Log, exec *scheduler.Executor) *Serializer {
	return &Serializer{log: log, exec: exec}
}

// Enqueue adds a log-write node depending on the previous one (forming the
// serial chain) plus any extra dependencies (typically "this revision's
// commit-tree node"), and marks it ready.
func (s *Serializer) Enqueue(header, body string, extraDeps ...int) error {
	id := s.exec.AddNode("runlog:"+header, func() error {
		return s.log.WriteSection(header, body)
	})
	if s.has {
		if err := s.exec.AddDependency(id, s.lastID); err != nil {
			return err
		}
	}
	for _, dep := range extraDeps {
		if err := s.exec.AddDependency(id, dep); err != nil {
			return err
		}
	}
	s.lastID = id
	s.has = true
	s.exec.Ready(id)
	return nil
}

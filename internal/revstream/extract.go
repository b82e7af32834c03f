package revstream

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExtractSink implements ExtractSink by writing each extracted path
// under Root, creating parent directories as needed (spec.md §4.2
// "extract" action; SPEC_FULL.md §4 "extract action writes relative to
// an extraction root").
type FileExtractSink struct {
	Root string
}

// Extract writes data to Root/path, rejecting any path that escapes Root
// via ".." segments.
func (f *FileExtractSink) Extract(path string, data []byte) error {
	target := filepath.Join(f.Root, filepath.FromSlash(path))
	rel, err := filepath.Rel(f.Root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &ExtractPathEscapesRootError{Root: f.Root, Path: path}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// ExtractPathEscapesRootError reports an extract action whose resolved
// path would land outside the configured extraction root.
type ExtractPathEscapesRootError struct {
	Root string
	Path string
}

func (e *ExtractPathEscapesRootError) Error() string {
	return "revstream: extract path " + e.Path + " escapes root " + e.Root
}

package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vss2git/vss2git/internal/historyreader"
	"github.com/vss2git/vss2git/internal/objstore"
	"github.com/vss2git/vss2git/internal/projecttree"
	"github.com/vss2git/vss2git/internal/revstream"
)

func TestExitCodeForInterrupted(t *testing.T) {
	assert.Equal(t, exitInterrupted, exitCodeFor(errInterrupted))
}

func TestExitCodeForInputNotFound(t *testing.T) {
	assert.Equal(t, exitInputNotFound, exitCodeFor(os.ErrNotExist))
	assert.Equal(t, exitInputNotFound, exitCodeFor(&objstore.PathNotFoundError{Path: "a/b"}))
}

func TestExitCodeForParseOrConfig(t *testing.T) {
	assert.Equal(t, exitParseOrConfig, exitCodeFor(&projecttree.InvalidConfigError{Reason: "bad glob"}))
	assert.Equal(t, exitParseOrConfig, exitCodeFor(&revstream.ParseError{Line: 3, Err: errors.New("bad json")}))
	assert.Equal(t, exitParseOrConfig, exitCodeFor(&historyreader.NodeError{Path: "x"}))
}

func TestExitCodeForUnknownErrorFallsBackToParseOrConfig(t *testing.T) {
	assert.Equal(t, exitParseOrConfig, exitCodeFor(errors.New("boom")))
}

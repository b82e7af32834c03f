package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockStackPushPopDepth(t *testing.T) {
	var s BlockStack
	s.Push(BlockFrame{Composite: true})
	s.Push(BlockFrame{})
	require.Equal(t, 2, s.Depth())
	f, ok := s.Pop()
	require.True(t, ok)
	assert.False(t, f.Composite)
	assert.Equal(t, 1, s.Depth())
}

func TestBlockStackInSwitchTrueInsideSwitchBody(t *testing.T) {
	var s BlockStack
	s.Push(BlockFrame{Composite: true, IsSwitch: true})
	assert.True(t, s.InSwitch())
}

func TestBlockStackInSwitchFalseAfterNestedNonSwitchComposite(t *testing.T) {
	var s BlockStack
	s.Push(BlockFrame{Composite: true, IsSwitch: true})
	s.Push(BlockFrame{Composite: true, IsSwitch: false}) // e.g. an `if` inside a `case`
	assert.False(t, s.InSwitch())
}

func TestBlockStackInSwitchFalseWhenNoSwitchOnStack(t *testing.T) {
	var s BlockStack
	s.Push(BlockFrame{Composite: false})
	assert.False(t, s.InSwitch())
}

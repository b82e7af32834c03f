package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprStackPushPopTop(t *testing.T) {
	var s ExprStack
	assert.Equal(t, 0, s.Depth())
	s.Push(ExprFrame{Opener: LPAREN, Column: 4})
	s.Push(ExprFrame{Opener: LBRACKET, Column: 10})
	require.Equal(t, 2, s.Depth())

	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, LBRACKET, top.Opener)

	popped, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, LBRACKET, popped.Opener)
	assert.Equal(t, 1, s.Depth())
}

func TestExprStackPopEmpty(t *testing.T) {
	var s ExprStack
	_, ok := s.Pop()
	assert.False(t, ok)
}

func TestExprStackCloneIsIndependent(t *testing.T) {
	var s ExprStack
	s.Push(ExprFrame{Opener: LPAREN, Column: 1})
	clone := s.clone()
	s.Push(ExprFrame{Opener: LPAREN, Column: 2})
	assert.Equal(t, 1, clone.Depth())
	assert.Equal(t, 2, s.Depth())
}

package projecttree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vss2git/vss2git/internal/config"
)

func TestApplyEditRulesSubstitutesInOrder(t *testing.T) {
	rules, err := CompileEditRules([]config.EditMsgRule{
		{Pattern: `TODO`, Replacement: "DONE"},
		{Pattern: `DONE`, Replacement: "FINISHED", Terminal: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "FINISHED: ship it", ApplyEditRules(rules, "TODO: ship it"))
}

func TestApplyEditRulesStopsAtTerminal(t *testing.T) {
	rules, err := CompileEditRules([]config.EditMsgRule{
		{Pattern: `a`, Replacement: "X", Terminal: true},
		{Pattern: `b`, Replacement: "Y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Xbc", ApplyEditRules(rules, "abc"))
}

func TestApplyEditRulesRespectsMaxCount(t *testing.T) {
	rules, err := CompileEditRules([]config.EditMsgRule{
		{Pattern: `a`, Replacement: "X", MaxCount: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "XXa", ApplyEditRules(rules, "aaa"))
}

func TestCompileEditRulesRejectsBadPattern(t *testing.T) {
	_, err := CompileEditRules([]config.EditMsgRule{{Pattern: "["}})
	require.Error(t, err)
	var cfgErr *InvalidConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSkipCommitDecisionByRevID(t *testing.T) {
	rules := []config.SkipCommitRule{{RevID: "r5", ReplaceWith: "squashed"}}
	skip, replace := SkipCommitDecision(rules, 5, "r5")
	assert.True(t, skip)
	assert.Equal(t, "squashed", replace)
}

func TestSkipCommitDecisionByRevRange(t *testing.T) {
	rules := []config.SkipCommitRule{{RevRange: "10-20"}}
	skip, _ := SkipCommitDecision(rules, 15, "r15")
	assert.True(t, skip)

	skip, _ = SkipCommitDecision(rules, 25, "r25")
	assert.False(t, skip)
}

package projecttree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vss2git/vss2git/internal/config"
)

func sampleProject() config.ProjectConfig {
	return config.ProjectConfig{
		MapPaths: []config.MapPathRule{
			{Glob: "trunk", Refname: "refs/heads/main", LabelsRefRoot: "refs/tags"},
			{Glob: "branches/*", Refname: "refs/heads/{1}", LabelsRefRoot: "refs/tags"},
			{Glob: "attic", Refname: ""},
		},
		ChmodSpecs: []config.ChmodSpec{
			{Glob: "*.sh", Mode: 0o100755},
		},
	}
}

func TestFindBranchRootMatchesTrunk(t *testing.T) {
	m, err := NewMapper(sampleProject())
	require.NoError(t, err)

	root, rule, refname, ok := m.FindBranchRoot("trunk/src/main.c")
	require.True(t, ok)
	assert.Equal(t, "trunk", root)
	assert.Equal(t, "refs/heads/main", refname)
	assert.Equal(t, "trunk", rule.Glob)
}

func TestFindBranchRootTemplatesWildcardCapture(t *testing.T) {
	m, err := NewMapper(sampleProject())
	require.NoError(t, err)

	root, _, refname, ok := m.FindBranchRoot("branches/feature-x/file.c")
	require.True(t, ok)
	assert.Equal(t, "branches/feature-x", root)
	assert.Equal(t, "refs/heads/feature-x", refname)
}

func TestFindBranchRootExplicitBlock(t *testing.T) {
	m, err := NewMapper(sampleProject())
	require.NoError(t, err)

	_, _, _, ok := m.FindBranchRoot("attic/old.c")
	assert.False(t, ok)
}

func TestFindBranchRootUnmappedPath(t *testing.T) {
	m, err := NewMapper(sampleProject())
	require.NoError(t, err)

	_, _, _, ok := m.FindBranchRoot("unrelated/dir/file.c")
	assert.False(t, ok)
}

func TestModeUsesChmodSpec(t *testing.T) {
	m, err := NewMapper(sampleProject())
	require.NoError(t, err)

	assert.EqualValues(t, 0o100755, m.Mode("trunk/build.sh"))
	assert.EqualValues(t, 0o100644, m.Mode("trunk/main.c"))
}

func TestNewMapperRejectsBadChmodGlob(t *testing.T) {
	proj := config.ProjectConfig{ChmodSpecs: []config.ChmodSpec{{Glob: "[", Mode: 0o100644}}}
	_, err := NewMapper(proj)
	assert.Error(t, err)
}

package roles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownCategoryFailsClosed(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)

	for _, check := range []struct {
		name string
		run  func() bool
	}{
		{"skill", func() bool { return e.CheckSkillPermission("martian", "do_nothing").Allowed }},
		{"read", func() bool { return e.CheckStateAccess("martian", "own_state").Allowed }},
		{"mutate", func() bool { return e.CheckStateMutation("martian", "savings").Allowed }},
	} {
		if check.run() {
			t.Errorf("%s check allowed an unknown category", check.name)
		}
	}

	res := e.CheckSkillPermission("martian", "do_nothing")
	assert.Contains(t, res.Reason, "unknown actor category")
}

func TestSkillPermissionAcrossCategories(t *testing.T) {
	table := Table{
		"insurance": {
			AllowedSkills: []string{"do_nothing", "set_premium"},
			ArtifactType:  "policy_decision",
		},
		"household": {
			AllowedSkills: []string{"do_nothing", "buy_insurance"},
			ArtifactType:  "household_decision",
		},
	}
	e, err := NewEnforcer(table)
	require.NoError(t, err)

	denied := e.CheckSkillPermission("insurance", "buy_insurance")
	assert.False(t, denied.Allowed, "insurers must not buy their own product")
	assert.NotEmpty(t, denied.Reason)

	allowed := e.CheckSkillPermission("household", "buy_insurance")
	assert.True(t, allowed.Allowed)
	assert.Empty(t, allowed.Reason)
}

func TestDefaultTableCoversAllCategories(t *testing.T) {
	table := DefaultTable()
	require.NoError(t, table.Validate())
	for _, cat := range []string{"household", "insurance", "government", "irrigator"} {
		spec, ok := table[cat]
		require.True(t, ok, "missing category %s", cat)
		assert.True(t, spec.Allows("do_nothing"), "%s must always be able to do nothing", cat)
		assert.NotEmpty(t, spec.ArtifactType)
	}
}

func TestStateAccessAndMutation(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)

	assert.True(t, e.CheckStateAccess("household", "flood").Allowed)
	assert.False(t, e.CheckStateAccess("household", "budget").Allowed)

	assert.True(t, e.CheckStateMutation("government", "levee_height").Allowed)
	assert.False(t, e.CheckStateMutation("household", "levee_height").Allowed)
}

func TestLoadTableYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
farmer:
  allowed_skills: [do_nothing, plant]
  can_read_state: [own_state]
  can_modify: [crop]
  artifact_type: farm_decision
`), 0644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.True(t, table["farmer"].Allows("plant"))
	assert.Equal(t, "farm_decision", table["farmer"].ArtifactType)
}

func TestLoadTableRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
farmer:
  allowed_skills: []
`), 0644))
	_, err := LoadTable(path)
	assert.Error(t, err)

	_, err = LoadTable(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestReplaceKeepsPreviousOnInvalidTable(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)

	assert.Error(t, e.Replace(Table{}))
	assert.True(t, e.CheckSkillPermission("household", "do_nothing").Allowed,
		"rejected replacement must leave the old table in force")

	require.NoError(t, e.Replace(Table{"bot": {AllowedSkills: []string{"idle"}}}))
	assert.False(t, e.CheckSkillPermission("household", "do_nothing").Allowed)
	assert.True(t, e.CheckSkillPermission("bot", "idle").Allowed)
}

func TestAllSkillsIsSortedUnion(t *testing.T) {
	e, err := NewEnforcer(Table{
		"a": {AllowedSkills: []string{"z_skill", "shared"}},
		"b": {AllowedSkills: []string{"a_skill", "shared"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a_skill", "shared", "z_skill"}, e.AllSkills())
}

func TestArtifactType(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)
	assert.Equal(t, "policy_decision", e.ArtifactType("government"))
	assert.Equal(t, "unknown", e.ArtifactType("martian"))
}

package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Category != nil {
			out = append(out, "category:"+e.Category.ID)
		} else {
			out = append(out, e.Kind.ID)
		}
	}
	return out
}

func TestDefaultCatalog_Menu(t *testing.T) {
	t.Parallel()

	c := Default()

	assert.Equal(t,
		[]string{"name", "def", "forbidden", "zone", "stat_range", "category:pawn", "selection", "group"},
		entryIDs(c.ListSelectable(false)))

	assert.Equal(t,
		[]string{"name", "def", "forbidden", "zone", "stat_range", "category:pawn", "selection", "group", "fogged", "category:dev"},
		entryIDs(c.ListSelectable(true)))
}

func TestDefaultCatalog_CategorizedKindsOnlyUnderCategory(t *testing.T) {
	t.Parallel()

	c := Default()
	top := entryIDs(c.ListSelectable(true))

	for _, catID := range []string{"pawn", "dev"} {
		for _, k := range c.CategoryKinds(catID, true) {
			assert.NotContains(t, top, k.ID)
			assert.Equal(t, catID, k.Category)
		}
	}

	assert.Empty(t, c.CategoryKinds("dev", false), "dev-only category kinds are hidden")
	pawn := c.CategoryKinds("pawn", false)
	require.Len(t, pawn, 3)
	assert.Equal(t, "skill", pawn[0].ID)
}

func TestDefaultCatalog_IsShared(t *testing.T) {
	t.Parallel()
	assert.Same(t, Default(), Default())
	assert.Len(t, Default().Kinds(), 13)
}

func TestCatalog_Lookup(t *testing.T) {
	t.Parallel()

	c := Default()
	k, err := c.Lookup("zone")
	require.NoError(t, err)
	assert.Equal(t, "In zone", k.Label)

	_, err = c.Lookup("teleporter")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPredicateKind))
}

func TestCatalog_Register(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	factory := func() Predicate { return &NamePredicate{} }

	require.NoError(t, c.Register(&Kind{ID: "a", Factory: factory}))
	err := c.Register(&Kind{ID: "a", Factory: factory})
	assert.ErrorIs(t, err, ErrDuplicateKind)

	assert.Error(t, c.Register(&Kind{ID: "b"}), "factory required")
	assert.Error(t, c.Register(&Kind{ID: "c", Category: "missing", Factory: factory}))

	require.NoError(t, c.RegisterCategory(&Category{ID: "cat", Label: "Cat"}))
	// An empty category is not offered.
	assert.Equal(t, []string{"a"}, entryIDs(c.ListSelectable(true)))

	require.NoError(t, c.Register(&Kind{ID: "d", Category: "cat", Factory: factory}))
	assert.Equal(t, []string{"a", "category:cat"}, entryIDs(c.ListSelectable(true)))
}

func TestLoadCatalog_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadCatalog([]byte("entries: ["), Classes)
	assert.Error(t, err)

	_, err = LoadCatalog([]byte("entries:\n  - kind: x\n    class: nope\n"), Classes)
	assert.Error(t, err)

	c, err := LoadCatalog([]byte("entries:\n  - kind: name\n"), Classes)
	require.NoError(t, err)
	_, err = c.Lookup("name")
	assert.NoError(t, err)
}

func TestNewNode_Defaults(t *testing.T) {
	t.Parallel()

	n, err := Default().NewNode("stat_range")
	require.NoError(t, err)

	assert.True(t, n.Enabled)
	assert.True(t, n.Include)
	assert.NotEmpty(t, n.ID)

	other, err := Default().NewNode("stat_range")
	require.NoError(t, err)
	assert.NotEqual(t, n.ID, other.ID)
	assert.NotSame(t, n.Pred, other.Pred)

	_, err = Default().NewNode("bogus")
	assert.ErrorIs(t, err, ErrUnknownPredicateKind)
}

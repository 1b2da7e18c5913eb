package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_DisabledIsIdentity(t *testing.T) {
	t.Parallel()

	_, es := stockpile()
	c := Default()

	for _, kind := range []string{"name", "def", "forbidden", "stat_range", "skill", "group"} {
		for _, include := range []bool{true, false} {
			n := mustNode(c, kind, nil)
			n.Enabled = false
			n.Include = include
			assert.Equal(t, ids(es), ids(n.Apply(es)), "kind=%s include=%v", kind, include)
		}
	}
}

func TestNode_IncludePartitions(t *testing.T) {
	t.Parallel()

	_, es := stockpile()
	c := Default()

	tests := []struct {
		kind string
		cfg  map[string]any
	}{
		{"name", map[string]any{"pattern": "STEEL"}},
		{"def", map[string]any{"def": "WoodLog"}},
		{"group", map[string]any{"combinator": "any"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()

			in := mustNode(c, tt.kind, tt.cfg)
			out := mustNode(c, tt.kind, tt.cfg)
			out.Include = false

			kept := ids(in.Apply(es))
			dropped := ids(out.Apply(es))

			assert.Len(t, append(kept, dropped...), len(es))
			for _, id := range kept {
				assert.NotContains(t, dropped, id)
			}
		})
	}
}

func TestNode_Apply_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	_, es := stockpile()
	before := ids(es)
	n := mustNode(Default(), "def", map[string]any{"def": "Steel"})

	got := n.Apply(es)

	assert.Equal(t, []string{"steel-2", "steel-1", "hidden-1"}, ids(got))
	assert.Equal(t, before, ids(es))
}

func TestNode_PanicRejectsOnlyThatEntity(t *testing.T) {
	t.Parallel()

	_, es := stockpile()
	n := &Node{ID: "x", Kind: &Kind{ID: "panicky"}, Enabled: true, Include: true, Pred: &panicky{on: "wood-1"}}

	got, failures := n.apply(es, nil)

	assert.Equal(t, 1, failures)
	assert.Len(t, got, len(es)-1)
	assert.NotContains(t, ids(got), "wood-1")
}

func TestNode_PreFilterGuardsApplies(t *testing.T) {
	t.Parallel()

	_, es := stockpile()
	c := Default()

	skill := mustNode(c, "skill", map[string]any{"skill": "mining", "min": 10, "max": 20})
	assert.Equal(t, []string{"pawn-ann"}, ids(skill.Apply(es)))

	// Non-pawns fail the prefilter so they are rejected either way.
	skill.Include = false
	assert.Equal(t, []string{"pawn-bo"}, ids(skill.Apply(es)))
}

func TestLeafPredicates(t *testing.T) {
	t.Parallel()

	ctx, es := stockpile()
	c := Default()

	tests := []struct {
		name string
		kind string
		cfg  map[string]any
		want []string
	}{
		{"name folds case", "name", map[string]any{"pattern": "wood"}, []string{"wood-1", "wood-2"}},
		{"empty name matches all", "name", map[string]any{"pattern": ""}, ids(es)},
		{"def", "def", map[string]any{"def": "Human"}, []string{"pawn-ann", "pawn-bo", "corpse-1"}},
		{"forbidden", "forbidden", nil, []string{"wood-1"}},
		{"trait", "trait", map[string]any{"trait": "Tough"}, []string{"pawn-ann"}},
		{"any hediff", "health", nil, []string{"pawn-ann"}},
		{"named hediff", "health", map[string]any{"hediff": "Plague"}, []string{}},
		{"fogged", "fogged", nil, []string{"hidden-1"}},
		{"stat range", "stat_range", map[string]any{"stat": "skill.mining", "min": 0, "max": 5}, []string{"pawn-bo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := mustNode(c, tt.kind, tt.cfg)
			n = CloneNode(n, ctx, nil)
			assert.Equal(t, tt.want, ids(n.Apply(es)))
		})
	}
}

func TestSelection_PicksFirstKindOfCategory(t *testing.T) {
	t.Parallel()

	c := Default()
	n, err := c.NewNode("selection")
	require.NoError(t, err)

	sel := n.Pred.(*SelectionPredicate)
	require.NotNil(t, sel.Sub)
	assert.Equal(t, "skill", sel.Sub.KindID())

	require.NoError(t, sel.Select(c, "trait"))
	require.NoError(t, sel.Sub.Pred.(Configurable).SetConfig(map[string]any{"trait": "Tough"}))

	_, es := stockpile()
	assert.Equal(t, []string{"pawn-ann"}, ids(n.Apply(es)))

	assert.Error(t, sel.Select(c, "name"), "kinds outside the category are rejected")
}

func TestReorderNodes(t *testing.T) {
	t.Parallel()

	c := Default()
	mk := func() (*Tree, []*Node) {
		tree := NewTree("reorder")
		var nodes []*Node
		for range 4 {
			n := mustNode(c, "name", nil)
			tree.Add(n)
			nodes = append(nodes, n)
		}
		return tree, nodes
	}

	tests := []struct {
		name     string
		from, to int
		want     []int
	}{
		{"forward lands before target", 0, 2, []int{1, 0, 2, 3}},
		{"to end", 0, 4, []int{1, 2, 3, 0}},
		{"backward", 3, 1, []int{0, 3, 1, 2}},
		{"no-op", 2, 2, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree, nodes := mk()
			require.NoError(t, tree.Reorder(tt.from, tt.to))
			for i, idx := range tt.want {
				assert.Same(t, nodes[idx], tree.Children[i])
			}
		})
	}

	tree, _ := mk()
	assert.Error(t, tree.Reorder(5, 0))
	assert.Error(t, tree.Reorder(0, 5))
}

func TestTree_RemoveAllAndCheck(t *testing.T) {
	t.Parallel()

	c := Default()
	tree := NewTree("t")
	a := mustNode(c, "name", nil)
	g := mustNode(c, "group", nil)
	z := mustNode(c, "zone", map[string]any{"zone": "Stockpile 1"})
	g.Group().AddChild(z)
	tree.Add(a)
	tree.Add(g)

	assert.True(t, tree.CurrentContextOnly())
	assert.Same(t, z, tree.Find(z.ID))

	g.Group().RemoveChildren(z)
	assert.False(t, tree.CurrentContextOnly())

	tree.RemoveAll(a)
	require.Len(t, tree.Children, 1)
	assert.Same(t, g, tree.Children[0])
	assert.Nil(t, tree.Find(a.ID))
}

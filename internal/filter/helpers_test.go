package filter

import (
	"fmt"
	"slices"
)

type testEntity struct {
	id        string
	kindID    int
	kindName  string
	variantID int
	label     string
	pos       Position
	contained bool
	props     map[string]any
}

func (e *testEntity) ID() string         { return e.id }
func (e *testEntity) KindID() int        { return e.kindID }
func (e *testEntity) KindName() string   { return e.kindName }
func (e *testEntity) VariantID() int     { return e.variantID }
func (e *testEntity) Label() string      { return e.label }
func (e *testEntity) Position() Position { return e.pos }
func (e *testEntity) Contained() bool    { return e.contained }

func (e *testEntity) Property(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

type testZone struct {
	key     string
	members []string
}

func (z *testZone) RefKind() string { return RefZone }
func (z *testZone) RefKey() string  { return z.key }

func (z *testZone) Contains(e Entity) bool {
	return slices.Contains(z.members, e.ID())
}

type testContext struct {
	key    string
	fogged map[string]bool
	zones  map[string]*testZone
}

func (c *testContext) Key() string   { return c.key }
func (c *testContext) Label() string { return "Map " + c.key }

func (c *testContext) Perceivable(e Entity) bool { return !c.fogged[e.ID()] }

func (c *testContext) Reference(kind, key string) (Ref, bool) {
	if kind != RefZone {
		return nil, false
	}
	z, ok := c.zones[key]
	if !ok {
		return nil, false
	}
	return z, true
}

// stockpile builds a small map: steel and wood stacks, two colonists and a
// corpse, with a storage zone holding some of the stacks.
func stockpile() (*testContext, []Entity) {
	es := []Entity{
		&testEntity{id: "steel-2", kindID: 10, kindName: "Steel", label: "steel x75", pos: Position{X: 5, Z: 1}},
		&testEntity{id: "steel-1", kindID: 10, kindName: "Steel", label: "steel x20", pos: Position{X: 2, Z: 1}},
		&testEntity{id: "wood-1", kindID: 11, kindName: "WoodLog", label: "wood x40", pos: Position{X: 1, Z: 0},
			props: map[string]any{PropForbidden: true}},
		&testEntity{id: "wood-2", kindID: 11, kindName: "WoodLog", label: "Wood x8", pos: Position{X: 3, Z: 3},
			props: map[string]any{PropForbidden: false}},
		&testEntity{id: "pawn-ann", kindID: 1, kindName: "Human", label: "Ann", pos: Position{X: 9, Z: 9},
			props: map[string]any{
				PropPawn: true, "skill.mining": 12, PropTraits: []string{"Tough"},
				PropHediffs: []string{"Flu"},
			}},
		&testEntity{id: "pawn-bo", kindID: 1, kindName: "Human", label: "Bo", pos: Position{X: 0, Z: 2},
			props: map[string]any{PropPawn: true, "skill.mining": 3}},
		&testEntity{id: "corpse-1", kindID: 1, kindName: "Human", label: "Cy (corpse)", contained: true},
		&testEntity{id: "hidden-1", kindID: 10, kindName: "Steel", label: "steel x5", pos: Position{X: 50, Z: 50},
			props: map[string]any{PropFogged: true}},
	}
	ctx := &testContext{
		key:    "map-1",
		fogged: map[string]bool{"hidden-1": true},
		zones: map[string]*testZone{
			"Stockpile 1": {key: "Stockpile 1", members: []string{"steel-1", "wood-1"}},
		},
	}
	return ctx, es
}

func allSources(es []Entity) SourceTable {
	src := func(Context) ([]Entity, error) { return es, nil }
	return SourceTable{BaseAll: src, BaseSelectable: src}
}

func ids(es []Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID()
	}
	return out
}

func mustNode(c *Catalog, kind string, cfg map[string]any) *Node {
	n, err := c.NewNode(kind)
	if err != nil {
		panic(err)
	}
	if cfg != nil {
		if err := n.Pred.(Configurable).SetConfig(cfg); err != nil {
			panic(fmt.Sprintf("config %s: %v", kind, err))
		}
	}
	return n
}

// panicky panics for one entity id.
type panicky struct{ on string }

func (p *panicky) PreFilter(Entity) bool { return true }

func (p *panicky) Applies(e Entity) bool {
	if e.ID() == p.on {
		panic("boom")
	}
	return true
}

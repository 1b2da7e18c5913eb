package filter

import "fmt"

// Combinator joins a group's children.
type Combinator string

const (
	CombinatorAll Combinator = "all"
	CombinatorAny Combinator = "any"
)

// Group combines child nodes with ANY or ALL. Disabled children are skipped,
// so an empty enabled set is true under ALL and false under ANY.
type Group struct {
	Combinator Combinator
	Children   []*Node
}

func newGroup() Predicate {
	return &Group{Combinator: CombinatorAll}
}

func (g *Group) PreFilter(Entity) bool { return true }

func (g *Group) Applies(e Entity) bool {
	anyMode := g.Combinator == CombinatorAny
	for _, child := range g.Children {
		if !child.Enabled {
			continue
		}
		if child.AppliesTo(e) == anyMode {
			return anyMode
		}
	}
	return !anyMode
}

// AddChild appends n to the group.
func (g *Group) AddChild(n *Node) {
	g.Children = append(g.Children, n)
}

// RemoveChildren drops the given nodes from the group.
func (g *Group) RemoveChildren(nodes ...*Node) {
	g.Children = removeNodes(g.Children, nodes...)
}

// Reorder moves a child; see Tree.Reorder.
func (g *Group) Reorder(from, to int) error {
	children, err := reorderNodes(g.Children, from, to)
	if err != nil {
		return err
	}
	g.Children = children
	return nil
}

func (g *Group) Nodes() []*Node { return g.Children }

func (g *Group) SetNodes(nodes []*Node) { g.Children = nodes }

func (g *Group) Config() map[string]any {
	return map[string]any{"combinator": string(g.Combinator)}
}

func (g *Group) SetConfig(cfg map[string]any) error {
	raw, ok := cfg["combinator"]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("combinator must be a string, got %T", raw)
	}
	switch c := Combinator(s); c {
	case CombinatorAll, CombinatorAny:
		g.Combinator = c
		return nil
	default:
		return fmt.Errorf("unknown combinator %q", s)
	}
}

package filter

import "fmt"

// BaseKind selects the collection a tree starts from.
type BaseKind string

const (
	BaseSelectable BaseKind = "selectable"
	BaseEveryone   BaseKind = "everyone"
	BaseColonists  BaseKind = "colonists"
	BaseAnimals    BaseKind = "animals"
	BaseItems      BaseKind = "items"
	BaseBuildings  BaseKind = "buildings"
	BaseNatural    BaseKind = "natural"
	BasePlants     BaseKind = "plants"
	BaseInventory  BaseKind = "inventory"
	BaseAll        BaseKind = "all"

	// Developer collections.
	BaseHaulables       BaseKind = "haulables"
	BaseMergables       BaseKind = "mergables"
	BaseFilthInHomeArea BaseKind = "filth_in_home_area"
)

var baseKinds = []BaseKind{
	BaseSelectable, BaseEveryone, BaseColonists, BaseAnimals, BaseItems,
	BaseBuildings, BaseNatural, BasePlants, BaseInventory, BaseAll,
}

var devBaseKinds = []BaseKind{BaseHaulables, BaseMergables, BaseFilthInHomeArea}

// BaseKinds lists the selectable base collections in menu order.
func BaseKinds(includeDev bool) []BaseKind {
	out := append([]BaseKind(nil), baseKinds...)
	if includeDev {
		out = append(out, devBaseKinds...)
	}
	return out
}

// ParseBaseKind validates a base collection name.
func ParseBaseKind(s string) (BaseKind, error) {
	for _, k := range BaseKinds(true) {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown base collection %q", s)
}

// Priority of a standing alert.
type Priority string

const (
	PriorityMedium   Priority = "medium"
	PriorityCritical Priority = "critical"
)

// Comparison decides how a result count is tested against the alert threshold.
type Comparison string

const (
	CompareGreaterOrEqual Comparison = "greater_or_equal"
	CompareGreaterThan    Comparison = "greater_than"
	CompareLessThan       Comparison = "less_than"
	CompareLessOrEqual    Comparison = "less_or_equal"
	CompareEqual          Comparison = "equal"
)

// AlertSettings is tree metadata used only when the tree backs an alert.
type AlertSettings struct {
	Priority     Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	SustainTicks int64      `json:"sustain_ticks" yaml:"sustain_ticks"`
	Threshold    int        `json:"threshold" yaml:"threshold"`
	Comparison   Comparison `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

// DefaultAlertSettings fires on a single match after ten seconds of host time.
func DefaultAlertSettings() AlertSettings {
	return AlertSettings{
		Priority:     PriorityMedium,
		SustainTicks: 600,
		Threshold:    1,
		Comparison:   CompareGreaterOrEqual,
	}
}

// Tree is a named filter: a base collection narrowed by an implicit ALL of
// its top-level nodes. It owns its nodes exclusively.
type Tree struct {
	Name        string
	Base        BaseKind
	AllContexts bool
	Children    []*Node
	Alert       AlertSettings
}

// NewTree creates an empty tree over the selectable collection.
func NewTree(name string) *Tree {
	return &Tree{
		Name:  name,
		Base:  BaseSelectable,
		Alert: DefaultAlertSettings(),
	}
}

// Add appends a top-level node.
func (t *Tree) Add(n *Node) {
	t.Children = append(t.Children, n)
}

// RemoveAll drops the given top-level nodes.
func (t *Tree) RemoveAll(nodes ...*Node) {
	t.Children = removeNodes(t.Children, nodes...)
}

// Reorder moves the top-level node at from to position to, where to is the
// drop index in the list before the move.
func (t *Tree) Reorder(from, to int) error {
	children, err := reorderNodes(t.Children, from, to)
	if err != nil {
		return err
	}
	t.Children = children
	return nil
}

// Check reports whether fn holds for any node in the tree.
func (t *Tree) Check(fn func(*Node) bool) bool {
	return checkNodes(t.Children, fn)
}

// CurrentContextOnly reports whether some node only makes sense against the
// current context, which disables all-contexts evaluation.
func (t *Tree) CurrentContextOnly() bool {
	return t.Check(func(n *Node) bool {
		cb, ok := n.Pred.(ContextBound)
		return ok && cb.CurrentContextOnly()
	})
}

// Find returns the node with the given id anywhere in the tree.
func (t *Tree) Find(id string) *Node {
	var found *Node
	t.Check(func(n *Node) bool {
		if n.ID == id {
			found = n
			return true
		}
		return false
	})
	return found
}

// ResolveReferences binds every node against ctx and returns the failures.
func (t *Tree) ResolveReferences(ctx Context) []error {
	var errs []error
	for _, n := range t.Children {
		errs = append(errs, n.ResolveReferences(ctx)...)
	}
	return errs
}

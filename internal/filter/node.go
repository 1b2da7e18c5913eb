package filter

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/listeverything/finder/internal/logger"
)

// Predicate is the variant payload of a Node.
type Predicate interface {
	// PreFilter is a cheap necessary condition checked before Applies.
	PreFilter(e Entity) bool
	// Applies must be pure and must return a safe default, never panic,
	// for entities that fail PreFilter.
	Applies(e Entity) bool
}

// Configurable predicates expose their portable configuration.
type Configurable interface {
	Config() map[string]any
	SetConfig(cfg map[string]any) error
}

// Referencing predicates hold references into a specific context.
type Referencing interface {
	// ResolveReferences binds portable keys against ctx. A key that does not
	// resolve is reset and reported as ErrReferenceResolution.
	ResolveReferences(ctx Context) error
	PortableReferences() []string
}

// ContextBound predicates only make sense against the current context.
type ContextBound interface {
	CurrentContextOnly() bool
}

// Container predicates own child nodes.
type Container interface {
	Nodes() []*Node
	SetNodes(nodes []*Node)
}

// PostMaker predicates finish construction once the catalog is available.
type PostMaker interface {
	PostMake(c *Catalog) error
}

// Node is one stage of a filter tree.
type Node struct {
	ID      string
	Kind    *Kind
	Enabled bool
	Include bool
	Pred    Predicate
}

func newNode(k *Kind) *Node {
	return &Node{
		ID:      uuid.NewString(),
		Kind:    k,
		Enabled: true,
		Include: true,
		Pred:    k.Factory(),
	}
}

// KindID returns the node's kind identifier, or "" for a detached node.
func (n *Node) KindID() string {
	if n.Kind == nil {
		return ""
	}
	return n.Kind.ID
}

// AppliesTo reports whether e passes this node, honouring Include but not
// Enabled. Callers skip disabled nodes themselves.
func (n *Node) AppliesTo(e Entity) bool {
	return n.Pred.PreFilter(e) && n.Pred.Applies(e) == n.Include
}

// Apply filters es through the node. A disabled node returns es unchanged.
func (n *Node) Apply(es []Entity) []Entity {
	out, _ := n.apply(es, nil)
	return out
}

// apply filters es, converting a panic for one entity into a rejection of
// that entity. It returns the number of entities that panicked.
func (n *Node) apply(es []Entity, log logger.Logger) ([]Entity, int) {
	if !n.Enabled {
		return es, 0
	}
	out := make([]Entity, 0, len(es))
	panics := 0
	for _, e := range es {
		ok, err := n.safeAppliesTo(e)
		if err != nil {
			panics++
			if log != nil {
				log.Warn("predicate failed, entity rejected",
					logger.String("kind", n.KindID()),
					logger.String("node_id", n.ID),
					logger.String("entity_id", e.ID()),
					logger.Error(err))
			}
			continue
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, panics
}

func (n *Node) safeAppliesTo(e Entity) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("panic in %s predicate: %v", n.KindID(), r)
		}
	}()
	return n.AppliesTo(e), nil
}

// Children returns the node's child nodes when its predicate is a container.
func (n *Node) Children() []*Node {
	if c, ok := n.Pred.(Container); ok {
		return c.Nodes()
	}
	return nil
}

// Group returns the node's group payload, or nil.
func (n *Node) Group() *Group {
	g, _ := n.Pred.(*Group)
	return g
}

// Check reports whether fn holds for n or any node below it.
func (n *Node) Check(fn func(*Node) bool) bool {
	if fn(n) {
		return true
	}
	return checkNodes(n.Children(), fn)
}

// ResolveReferences binds n and its descendants against ctx. Every failure is
// returned; the offending fields have already been reset.
func (n *Node) ResolveReferences(ctx Context) []error {
	var errs []error
	if r, ok := n.Pred.(Referencing); ok {
		if err := r.ResolveReferences(ctx); err != nil {
			errs = append(errs, fmt.Errorf("node %s (%s): %w", n.ID, n.KindID(), err))
		}
	}
	for _, child := range n.Children() {
		errs = append(errs, child.ResolveReferences(ctx)...)
	}
	return errs
}

func checkNodes(nodes []*Node, fn func(*Node) bool) bool {
	for _, child := range nodes {
		if child.Check(fn) {
			return true
		}
	}
	return false
}

// removeNodes drops every node in set, preserving order.
func removeNodes(nodes []*Node, set ...*Node) []*Node {
	return slices.DeleteFunc(nodes, func(n *Node) bool {
		return slices.Contains(set, n)
	})
}

// reorderNodes moves the node at from so it lands before the node currently
// at to. Moving forward inserts at to-1 because the source slot closes first.
func reorderNodes(nodes []*Node, from, to int) ([]*Node, error) {
	if from < 0 || from >= len(nodes) || to < 0 || to > len(nodes) {
		return nodes, fmt.Errorf("reorder %d -> %d out of range for %d nodes", from, to, len(nodes))
	}
	if from == to {
		return nodes, nil
	}
	n := nodes[from]
	nodes = slices.Delete(nodes, from, from+1)
	if from < to {
		to--
	}
	return slices.Insert(nodes, to, n), nil
}

package filter

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/listeverything/finder/internal/logger"
)

// PortableTree is the context-independent, persistable form of a Tree.
// References are stored as keys.
type PortableTree struct {
	Name        string         `json:"name" yaml:"name"`
	Base        BaseKind       `json:"base" yaml:"base"`
	AllContexts bool           `json:"all_contexts,omitempty" yaml:"all_contexts,omitempty"`
	Alert       AlertSettings  `json:"alert" yaml:"alert"`
	Nodes       []PortableNode `json:"nodes" yaml:"nodes"`
}

// PortableNode is the persistable form of a Node.
type PortableNode struct {
	ID       string         `json:"id,omitempty" yaml:"id,omitempty"`
	Kind     string         `json:"kind" yaml:"kind"`
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Include  bool           `json:"include" yaml:"include"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Children []PortableNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// ToPortable converts tree to its portable form.
func ToPortable(tree *Tree) PortableTree {
	p := PortableTree{
		Name:        tree.Name,
		Base:        tree.Base,
		AllContexts: tree.AllContexts,
		Alert:       tree.Alert,
		Nodes:       make([]PortableNode, 0, len(tree.Children)),
	}
	for _, n := range tree.Children {
		p.Nodes = append(p.Nodes, ToPortableNode(n))
	}
	return p
}

// ToPortableNode converts one node and its descendants.
func ToPortableNode(n *Node) PortableNode {
	pn := PortableNode{
		ID:      n.ID,
		Kind:    n.KindID(),
		Enabled: n.Enabled,
		Include: n.Include,
	}
	if c, ok := n.Pred.(Configurable); ok {
		pn.Config = c.Config()
	}
	for _, child := range n.Children() {
		pn.Children = append(pn.Children, ToPortableNode(child))
	}
	return pn
}

// FromPortable rebuilds a tree through catalog c. Nodes of unknown kinds are
// dropped and reported as ErrUnknownPredicateKind while their siblings are
// kept. Invalid configuration is logged and the node keeps its defaults.
// References stay unresolved.
func FromPortable(p PortableTree, c *Catalog, log logger.Logger) (*Tree, []error) {
	if log == nil {
		log = logger.NewNop()
	}
	base := p.Base
	if base == "" {
		base = BaseSelectable
	}
	tree := &Tree{
		Name:        p.Name,
		Base:        base,
		AllContexts: p.AllContexts,
		Alert:       p.Alert,
	}
	var errs []error
	tree.Children, errs = nodesFromPortable(p.Nodes, c.Lookup, log)
	for _, err := range errs {
		log.Warn("dropped node while loading filter",
			logger.String("tree", p.Name),
			logger.Error(err))
	}
	return tree, errs
}

type lookupFunc func(id string) (*Kind, error)

func nodesFromPortable(pns []PortableNode, lookup lookupFunc, log logger.Logger) ([]*Node, []error) {
	var errs []error
	nodes := make([]*Node, 0, len(pns))
	for i := range pns {
		n, nodeErrs := nodeFromPortable(&pns[i], lookup, log)
		errs = append(errs, nodeErrs...)
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, errs
}

// nodeFromPortable returns nil when the node itself cannot be built; errors
// from its children never drop the node.
func nodeFromPortable(pn *PortableNode, lookup lookupFunc, log logger.Logger) (*Node, []error) {
	k, err := lookup(pn.Kind)
	if err != nil {
		return nil, []error{err}
	}
	n := &Node{
		ID:      pn.ID,
		Kind:    k,
		Enabled: pn.Enabled,
		Include: pn.Include,
		Pred:    k.Factory(),
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if cfg, ok := n.Pred.(Configurable); ok && len(pn.Config) > 0 {
		if err := cfg.SetConfig(pn.Config); err != nil {
			log.Warn("invalid predicate config, using defaults",
				logger.String("kind", k.ID),
				logger.String("node_id", n.ID),
				logger.Error(err))
			n.Pred = k.Factory()
		}
	}
	var errs []error
	if c, ok := n.Pred.(Container); ok {
		var children []*Node
		children, errs = nodesFromPortable(pn.Children, lookup, log)
		c.SetNodes(children)
	}
	return n, errs
}

// MarshalPortableJSON encodes a portable tree for storage.
func MarshalPortableJSON(p PortableTree) ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPortableJSON decodes a stored portable tree.
func UnmarshalPortableJSON(data []byte) (PortableTree, error) {
	var p PortableTree
	if err := json.Unmarshal(data, &p); err != nil {
		return PortableTree{}, fmt.Errorf("failed to decode filter: %w", err)
	}
	return p, nil
}

// MarshalPortableYAML encodes a portable tree for hand-edited files.
func MarshalPortableYAML(p PortableTree) ([]byte, error) {
	return yaml.Marshal(p)
}

// UnmarshalPortableYAML decodes a hand-edited filter file.
func UnmarshalPortableYAML(data []byte) (PortableTree, error) {
	var p PortableTree
	if err := yaml.Unmarshal(data, &p); err != nil {
		return PortableTree{}, fmt.Errorf("failed to decode filter: %w", err)
	}
	return p, nil
}

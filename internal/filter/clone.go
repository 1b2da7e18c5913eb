package filter

import (
	"errors"

	"github.com/listeverything/finder/internal/logger"
)

// Clone deep-copies tree. With a nil ctx the copy is in portable form, its
// references unresolved, which is what persistence stores. With a ctx every
// reference is bound against it; references missing from ctx are reset to no
// selection and logged, never returned.
func Clone(tree *Tree, ctx Context, log logger.Logger) *Tree {
	if log == nil {
		log = logger.NewNop()
	}
	out := &Tree{
		Name:        tree.Name,
		Base:        tree.Base,
		AllContexts: tree.AllContexts,
		Alert:       tree.Alert,
		Children:    make([]*Node, 0, len(tree.Children)),
	}
	for _, n := range tree.Children {
		out.Children = append(out.Children, copyNode(n, log))
	}
	if ctx != nil {
		logResolveErrors(out.ResolveReferences(ctx), ctx, log)
	}
	return out
}

// CloneNode deep-copies one node subtree; see Clone.
func CloneNode(n *Node, ctx Context, log logger.Logger) *Node {
	if log == nil {
		log = logger.NewNop()
	}
	out := copyNode(n, log)
	if ctx != nil {
		logResolveErrors(out.ResolveReferences(ctx), ctx, log)
	}
	return out
}

// copyNode goes through each variant's portable configuration so the copy
// shares no state with the source and holds no bound references.
func copyNode(n *Node, log logger.Logger) *Node {
	out := &Node{
		ID:      n.ID,
		Kind:    n.Kind,
		Enabled: n.Enabled,
		Include: n.Include,
		Pred:    n.Kind.Factory(),
	}
	if src, ok := n.Pred.(Configurable); ok {
		dst := out.Pred.(Configurable)
		if err := dst.SetConfig(src.Config()); err != nil {
			log.Warn("failed to copy predicate config, using defaults",
				logger.String("kind", n.KindID()),
				logger.String("node_id", n.ID),
				logger.Error(err))
			out.Pred = n.Kind.Factory()
		}
	}
	if dst, ok := out.Pred.(Container); ok {
		children := n.Children()
		copies := make([]*Node, 0, len(children))
		for _, child := range children {
			copies = append(copies, copyNode(child, log))
		}
		dst.SetNodes(copies)
	}
	return out
}

func logResolveErrors(errs []error, ctx Context, log logger.Logger) {
	for _, err := range errs {
		level := log.Warn
		if errors.Is(err, ErrReferenceResolution) {
			level = log.Debug
		}
		level("reference reset while binding filter",
			logger.String("context", ctx.Key()),
			logger.Error(err))
	}
}

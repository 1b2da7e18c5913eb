package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
	"github.com/listeverything/finder/internal/world"
)

// readTreeFile decodes a portable tree from a .json or .yaml file.
func readTreeFile(path string) (filter.PortableTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return filter.PortableTree{}, fmt.Errorf("failed to read tree file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return filter.UnmarshalPortableJSON(data)
	}
	return filter.UnmarshalPortableYAML(data)
}

func openWorld(settings *conf.Settings) (*world.World, error) {
	if settings.World.File == "" {
		return nil, fmt.Errorf("no world file: set world.file or pass --world")
	}
	return world.LoadFile(settings.World.File)
}

// renderTree draws tree with one branch per node. Disabled nodes are marked
// with "off", excluded nodes with "not".
func renderTree(tree *filter.Tree) string {
	root := treeprint.NewWithRoot(fmt.Sprintf("%s [%s]", tree.Name, tree.Base))
	for _, n := range tree.Children {
		addNode(root, n)
	}
	return root.String()
}

func addNode(branch treeprint.Tree, n *filter.Node) {
	label := n.Kind.Label
	if g := n.Group(); g != nil {
		label = fmt.Sprintf("%s (%s)", label, g.Combinator)
	} else if c, ok := n.Pred.(filter.Configurable); ok {
		if cfg := c.Config(); len(cfg) > 0 {
			label = fmt.Sprintf("%s %v", label, cfg)
		}
	}
	if !n.Include {
		label = "not " + label
	}
	if !n.Enabled {
		label += " (off)"
	}

	children := n.Children()
	if len(children) == 0 {
		branch.AddNode(label)
		return
	}
	sub := branch.AddBranch(label)
	for _, child := range children {
		addNode(sub, child)
	}
}

// decodeTree rebuilds a tree from its portable form. Dropped nodes are
// logged by FromPortable.
func decodeTree(p filter.PortableTree, log logger.Logger) *filter.Tree {
	tree, _ := filter.FromPortable(p, filter.Default(), log)
	return tree
}

package filter

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind describes one registered predicate kind.
type Kind struct {
	ID       string
	Label    string
	Category string
	DevOnly  bool
	Factory  func() Predicate
	// Defaults is applied to every new node of this kind.
	Defaults map[string]any
}

// Category groups kinds under one menu entry.
type Category struct {
	ID      string
	Label   string
	DevOnly bool
	Kinds   []string
}

// Entry is one line of the top-level menu: a kind or a category.
type Entry struct {
	Kind     *Kind
	Category *Category
}

// Label returns the entry's display label.
func (e Entry) Label() string {
	if e.Category != nil {
		return e.Category.Label
	}
	return e.Kind.Label
}

// Catalog is the registry of predicate kinds. Register during startup only;
// lookups are safe for concurrent use once registration is done.
type Catalog struct {
	kinds      map[string]*Kind
	categories map[string]*Category
	order      []Entry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		kinds:      make(map[string]*Kind),
		categories: make(map[string]*Category),
	}
}

// Register adds a kind. A kind naming a category is listed under that
// category, which must already be registered.
func (c *Catalog) Register(k *Kind) error {
	if k.ID == "" || k.Factory == nil {
		return fmt.Errorf("predicate kind needs an id and a factory")
	}
	if _, exists := c.kinds[k.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, k.ID)
	}
	if k.Category != "" {
		cat, ok := c.categories[k.Category]
		if !ok {
			return fmt.Errorf("kind %s: unknown category %q", k.ID, k.Category)
		}
		cat.Kinds = append(cat.Kinds, k.ID)
	} else {
		c.order = append(c.order, Entry{Kind: k})
	}
	c.kinds[k.ID] = k
	return nil
}

// RegisterCategory adds an empty category entry at the current menu position.
func (c *Catalog) RegisterCategory(cat *Category) error {
	if cat.ID == "" {
		return fmt.Errorf("category needs an id")
	}
	if _, exists := c.categories[cat.ID]; exists {
		return fmt.Errorf("category %s already registered", cat.ID)
	}
	c.categories[cat.ID] = cat
	c.order = append(c.order, Entry{Category: cat})
	return nil
}

// Lookup returns the kind registered under id.
func (c *Catalog) Lookup(id string) (*Kind, error) {
	k, ok := c.kinds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPredicateKind, id)
	}
	return k, nil
}

// ListSelectable returns the top-level menu in registration order. Dev-only
// kinds and categories are hidden unless includeAdvanced is set.
func (c *Catalog) ListSelectable(includeAdvanced bool) []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, e := range c.order {
		if e.Category != nil {
			if e.Category.DevOnly && !includeAdvanced {
				continue
			}
			if len(c.CategoryKinds(e.Category.ID, includeAdvanced)) == 0 {
				continue
			}
		} else if e.Kind.DevOnly && !includeAdvanced {
			continue
		}
		out = append(out, e)
	}
	return out
}

// CategoryKinds returns the second-level list for a category.
func (c *Catalog) CategoryKinds(categoryID string, includeAdvanced bool) []*Kind {
	cat, ok := c.categories[categoryID]
	if !ok {
		return nil
	}
	out := make([]*Kind, 0, len(cat.Kinds))
	for _, id := range cat.Kinds {
		k := c.kinds[id]
		if k.DevOnly && !includeAdvanced {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Kinds returns every registered kind, top level first then by category, in
// registration order.
func (c *Catalog) Kinds() []*Kind {
	out := make([]*Kind, 0, len(c.kinds))
	for _, e := range c.order {
		if e.Kind != nil {
			out = append(out, e.Kind)
			continue
		}
		for _, id := range e.Category.Kinds {
			out = append(out, c.kinds[id])
		}
	}
	return out
}

// NewNode instantiates a kind as an enabled, including node.
func (c *Catalog) NewNode(id string) (*Node, error) {
	k, err := c.Lookup(id)
	if err != nil {
		return nil, err
	}
	n := newNode(k)
	if len(k.Defaults) > 0 {
		if cfg, ok := n.Pred.(Configurable); ok {
			if err := cfg.SetConfig(k.Defaults); err != nil {
				return nil, fmt.Errorf("kind %s defaults: %w", id, err)
			}
		}
	}
	if pm, ok := n.Pred.(PostMaker); ok {
		if err := pm.PostMake(c); err != nil {
			return nil, fmt.Errorf("kind %s: %w", id, err)
		}
	}
	return n, nil
}

type catalogFile struct {
	Entries []catalogEntry `yaml:"entries"`
}

type catalogEntry struct {
	Kind     string         `yaml:"kind"`
	Category string         `yaml:"category"`
	Label    string         `yaml:"label"`
	Class    string         `yaml:"class"`
	DevOnly  bool           `yaml:"dev_only"`
	Config   map[string]any `yaml:"config"`
	Kinds    []catalogEntry `yaml:"kinds"`
}

// LoadCatalog builds a catalog from a YAML declaration. Constructors are
// bound by each entry's class name.
func LoadCatalog(data []byte, classes map[string]func() Predicate) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := NewCatalog()
	for _, entry := range file.Entries {
		if entry.Category != "" {
			cat := &Category{ID: entry.Category, Label: entry.Label, DevOnly: entry.DevOnly}
			if err := c.RegisterCategory(cat); err != nil {
				return nil, err
			}
			for _, sub := range entry.Kinds {
				if err := c.registerEntry(sub, entry.Category, entry.DevOnly, classes); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := c.registerEntry(entry, "", false, classes); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) registerEntry(e catalogEntry, category string, devOnly bool, classes map[string]func() Predicate) error {
	class := e.Class
	if class == "" {
		class = e.Kind
	}
	factory, ok := classes[class]
	if !ok {
		return fmt.Errorf("kind %s: unknown class %q", e.Kind, class)
	}
	return c.Register(&Kind{
		ID:       e.Kind,
		Label:    e.Label,
		Category: category,
		DevOnly:  e.DevOnly || devOnly,
		Factory:  factory,
		Defaults: e.Config,
	})
}

//go:embed catalog.yaml
var catalogYAML []byte

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// Default returns the process-wide catalog built from the embedded
// declaration. It is built once and never mutated afterwards.
func Default() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := LoadCatalog(catalogYAML, Classes)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

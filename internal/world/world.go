// Package world is an in-memory host model: maps holding things and zones.
// Maps implement filter.Context and things implement filter.Entity.
package world

import (
	"fmt"
	"slices"
	"sync"

	"github.com/listeverything/finder/internal/filter"
)

// Thing categories.
const (
	CategoryPawn     = "pawn"
	CategoryItem     = "item"
	CategoryBuilding = "building"
	CategoryPlant    = "plant"
	CategoryFilth    = "filth"
	CategoryNatural  = "natural"
)

// Thing is one object on a map.
type Thing struct {
	ThingID   string          `yaml:"id" json:"id"`
	Def       string          `yaml:"def" json:"def"`
	DefID     int             `yaml:"def_id" json:"def_id"`
	Stuff     int             `yaml:"stuff,omitempty" json:"stuff,omitempty"`
	Name      string          `yaml:"label" json:"label"`
	Category  string          `yaml:"category" json:"category"`
	Pos       filter.Position `yaml:"pos" json:"pos"`
	Class     string          `yaml:"class,omitempty" json:"class,omitempty"`
	Drawer    string          `yaml:"drawer,omitempty" json:"drawer,omitempty"`
	Humanlike bool            `yaml:"humanlike,omitempty" json:"humanlike,omitempty"`
	Colonist  bool            `yaml:"colonist,omitempty" json:"colonist,omitempty"`
	// Inventory marks things carried by a pawn.
	Inventory bool `yaml:"inventory,omitempty" json:"inventory,omitempty"`
	// Packed marks corpses and minified buildings.
	Packed     bool           `yaml:"packed,omitempty" json:"packed,omitempty"`
	Fogged     bool           `yaml:"fogged,omitempty" json:"fogged,omitempty"`
	Forbidden  *bool          `yaml:"forbidden,omitempty" json:"forbidden,omitempty"`
	HomeArea   bool           `yaml:"home_area,omitempty" json:"home_area,omitempty"`
	Stack      int            `yaml:"stack,omitempty" json:"stack,omitempty"`
	StackLimit int            `yaml:"stack_limit,omitempty" json:"stack_limit,omitempty"`
	Props      map[string]any `yaml:"props,omitempty" json:"props,omitempty"`
}

func (t *Thing) ID() string                { return t.ThingID }
func (t *Thing) KindID() int               { return t.DefID }
func (t *Thing) KindName() string          { return t.Def }
func (t *Thing) VariantID() int            { return t.Stuff }
func (t *Thing) Label() string             { return t.Name }
func (t *Thing) Position() filter.Position { return t.Pos }
func (t *Thing) Contained() bool           { return t.Packed }

// Property exposes the typed fields under the well-known names and falls
// back to free-form props.
func (t *Thing) Property(name string) (any, bool) {
	switch name {
	case filter.PropPawn:
		if t.Category == CategoryPawn {
			return true, true
		}
		return nil, false
	case filter.PropForbidden:
		if t.Forbidden == nil {
			return nil, false
		}
		return *t.Forbidden, true
	case filter.PropFogged:
		return t.Fogged, true
	case filter.PropClass:
		return t.Class, t.Class != ""
	case filter.PropDrawer:
		return t.Drawer, t.Drawer != ""
	}
	v, ok := t.Props[name]
	return v, ok
}

// Zone is a named set of cells on one map.
type Zone struct {
	ZoneKey string            `yaml:"key" json:"key"`
	Cells   []filter.Position `yaml:"cells" json:"cells"`
}

func (z *Zone) RefKind() string { return filter.RefZone }
func (z *Zone) RefKey() string  { return z.ZoneKey }

func (z *Zone) Contains(e filter.Entity) bool {
	return slices.Contains(z.Cells, e.Position())
}

// Map is one context. Its things may change between evaluations.
type Map struct {
	MapKey   string
	MapLabel string

	mu     sync.RWMutex
	things []*Thing
	zones  map[string]*Zone
}

// NewMap creates an empty map.
func NewMap(key, label string) *Map {
	return &Map{MapKey: key, MapLabel: label, zones: make(map[string]*Zone)}
}

func (m *Map) Key() string   { return m.MapKey }
func (m *Map) Label() string { return m.MapLabel }

func (m *Map) Perceivable(e filter.Entity) bool {
	v, _ := e.Property(filter.PropFogged)
	fogged, _ := v.(bool)
	return !fogged
}

func (m *Map) Reference(kind, key string) (filter.Ref, bool) {
	if kind != filter.RefZone {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[key]
	if !ok {
		return nil, false
	}
	return z, true
}

// AddThing places t on the map, replacing a thing with the same id.
func (m *Map) AddThing(t *Thing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.things = slices.DeleteFunc(m.things, func(o *Thing) bool { return o.ThingID == t.ThingID })
	m.things = append(m.things, t)
}

// RemoveThing deletes a thing by id and reports whether it existed.
func (m *Map) RemoveThing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.things)
	m.things = slices.DeleteFunc(m.things, func(o *Thing) bool { return o.ThingID == id })
	return len(m.things) != before
}

// AddZone registers or replaces a zone.
func (m *Map) AddZone(z *Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[z.ZoneKey] = z
}

// RemoveZone deletes a zone.
func (m *Map) RemoveZone(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.zones, key)
}

// ZoneKeys lists zones in key order.
func (m *Map) ZoneKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.zones))
	for k := range m.zones {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Things returns a snapshot of the map's things.
func (m *Map) Things() []*Thing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.things)
}

// RemovedFunc is told about a map being removed.
type RemovedFunc func(key string)

// World holds the maps in creation order. The first map is current.
type World struct {
	mu        sync.RWMutex
	maps      []*Map
	onRemoved []RemovedFunc
}

// New creates an empty world.
func New() *World {
	return &World{}
}

// AddMap registers m. Keys are unique.
func (w *World) AddMap(m *Map) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.maps {
		if existing.MapKey == m.MapKey {
			return fmt.Errorf("map %q already exists", m.MapKey)
		}
	}
	w.maps = append(w.maps, m)
	return nil
}

// RemoveMap deletes a map and notifies listeners after the lock is released.
func (w *World) RemoveMap(key string) bool {
	w.mu.Lock()
	before := len(w.maps)
	w.maps = slices.DeleteFunc(w.maps, func(m *Map) bool { return m.MapKey == key })
	removed := len(w.maps) != before
	listeners := slices.Clone(w.onRemoved)
	w.mu.Unlock()

	if removed {
		for _, fn := range listeners {
			fn(key)
		}
	}
	return removed
}

// OnMapRemoved registers a listener for RemoveMap.
func (w *World) OnMapRemoved(fn RemovedFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRemoved = append(w.onRemoved, fn)
}

// Map returns the map with key.
func (w *World) Map(key string) (*Map, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, m := range w.maps {
		if m.MapKey == key {
			return m, true
		}
	}
	return nil, false
}

// Context implements the scheduler's context provider.
func (w *World) Context(key string) (filter.Context, bool) {
	m, ok := w.Map(key)
	if !ok {
		return nil, false
	}
	return m, true
}

// Contexts returns every map, current first.
func (w *World) Contexts() []filter.Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]filter.Context, len(w.maps))
	for i, m := range w.maps {
		out[i] = m
	}
	return out
}

// Current returns the first map, or nil for an empty world.
func (w *World) Current() filter.Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.maps) == 0 {
		return nil
	}
	return w.maps[0]
}

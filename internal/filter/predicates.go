package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/text/cases"
)

// Classes maps the constructor names used in catalog.yaml to predicate factories.
var Classes = map[string]func() Predicate{
	"name":        func() Predicate { return &NamePredicate{} },
	"def":         func() Predicate { return &DefPredicate{} },
	"forbidden":   func() Predicate { return &ForbiddenPredicate{} },
	"zone":        func() Predicate { return &ZonePredicate{} },
	"stat_range":  func() Predicate { return &StatRangePredicate{Max: 1} },
	"skill":       func() Predicate { return &SkillPredicate{Min: 0, Max: 20} },
	"trait":       func() Predicate { return &TraitPredicate{} },
	"health":      func() Predicate { return &HealthPredicate{} },
	"selection":   func() Predicate { return &SelectionPredicate{} },
	"group":       newGroup,
	"fogged":      func() Predicate { return &FoggedPredicate{} },
	"class_type":  func() Predicate { return &PropertyEqualsPredicate{Property: PropClass} },
	"drawer_type": func() Predicate { return &PropertyEqualsPredicate{Property: PropDrawer} },
}

// encodeConfig turns a predicate struct into its portable map.
// Fields tagged mapstructure:"-" hold bound state and are skipped.
func encodeConfig(v any) map[string]any {
	out := map[string]any{}
	if err := mapstructure.Decode(v, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// decodeConfig overlays cfg onto a predicate struct. Numbers that went
// through JSON arrive as float64 and are converted.
func decodeConfig(cfg map[string]any, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(cfg)
}

func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringList(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// NamePredicate matches a case-folded substring of the label.
type NamePredicate struct {
	Pattern string `mapstructure:"pattern"`
}

func (p *NamePredicate) PreFilter(Entity) bool { return true }

func (p *NamePredicate) Applies(e Entity) bool {
	if p.Pattern == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(e.Label()), fold.String(p.Pattern))
}

func (p *NamePredicate) Config() map[string]any { return encodeConfig(p) }

func (p *NamePredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

// DefPredicate matches the entity kind by name.
type DefPredicate struct {
	Def string `mapstructure:"def"`
}

func (p *DefPredicate) PreFilter(Entity) bool { return true }

func (p *DefPredicate) Applies(e Entity) bool {
	return p.Def != "" && e.KindName() == p.Def
}

func (p *DefPredicate) Config() map[string]any { return encodeConfig(p) }

func (p *DefPredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

// ForbiddenPredicate matches entities flagged forbidden.
type ForbiddenPredicate struct{}

func (p *ForbiddenPredicate) PreFilter(e Entity) bool { return HasProperty(e, PropForbidden) }

func (p *ForbiddenPredicate) Applies(e Entity) bool {
	v, ok := e.Property(PropForbidden)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ZonePredicate matches entities inside a zone of the current context. The
// portable form is the zone key; the bound form is the live zone.
type ZonePredicate struct {
	Zone string `mapstructure:"zone"`

	bound Ref
}

func (p *ZonePredicate) PreFilter(Entity) bool { return true }

func (p *ZonePredicate) Applies(e Entity) bool {
	return p.bound != nil && p.bound.Contains(e)
}

func (p *ZonePredicate) Config() map[string]any {
	return map[string]any{"zone": p.Zone}
}

func (p *ZonePredicate) SetConfig(cfg map[string]any) error {
	p.bound = nil
	return decodeConfig(cfg, p)
}

func (p *ZonePredicate) ResolveReferences(ctx Context) error {
	p.bound = nil
	if p.Zone == "" {
		return nil
	}
	key := p.Zone
	if ctx != nil {
		if ref, ok := ctx.Reference(RefZone, key); ok {
			p.bound = ref
			return nil
		}
	}
	p.Zone = ""
	return fmt.Errorf("zone %q: %w", key, ErrReferenceResolution)
}

func (p *ZonePredicate) PortableReferences() []string {
	if p.Zone == "" {
		return nil
	}
	return []string{RefZone + ":" + p.Zone}
}

// Bound reports whether the zone has been resolved against a context.
func (p *ZonePredicate) Bound() bool { return p.bound != nil }

func (p *ZonePredicate) CurrentContextOnly() bool { return p.Zone != "" }

// StatRangePredicate matches a numeric property within [Min, Max].
type StatRangePredicate struct {
	Stat string  `mapstructure:"stat"`
	Min  float64 `mapstructure:"min"`
	Max  float64 `mapstructure:"max"`
}

func (p *StatRangePredicate) PreFilter(e Entity) bool {
	return p.Stat != "" && HasProperty(e, p.Stat)
}

func (p *StatRangePredicate) Applies(e Entity) bool {
	v, ok := e.Property(p.Stat)
	if !ok {
		return false
	}
	f, ok := toFloat64(v)
	return ok && f >= p.Min && f <= p.Max
}

func (p *StatRangePredicate) Config() map[string]any { return encodeConfig(p) }

func (p *StatRangePredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

// isPawn is the shared prefilter of the pawn category.
func isPawn(e Entity) bool { return HasProperty(e, PropPawn) }

// SkillPredicate matches pawns whose skill level is within [Min, Max].
type SkillPredicate struct {
	Skill string `mapstructure:"skill"`
	Min   int    `mapstructure:"min"`
	Max   int    `mapstructure:"max"`
}

func (p *SkillPredicate) PreFilter(e Entity) bool { return isPawn(e) }

func (p *SkillPredicate) Applies(e Entity) bool {
	if p.Skill == "" {
		return false
	}
	v, ok := e.Property(PropSkillPrefix + p.Skill)
	if !ok {
		return false
	}
	f, ok := toFloat64(v)
	return ok && f >= float64(p.Min) && f <= float64(p.Max)
}

func (p *SkillPredicate) Config() map[string]any { return encodeConfig(p) }

func (p *SkillPredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

// TraitPredicate matches pawns that have a trait.
type TraitPredicate struct {
	Trait string `mapstructure:"trait"`
}

func (p *TraitPredicate) PreFilter(e Entity) bool { return isPawn(e) }

func (p *TraitPredicate) Applies(e Entity) bool {
	v, _ := e.Property(PropTraits)
	return p.Trait != "" && slices.Contains(stringList(v), p.Trait)
}

func (p *TraitPredicate) Config() map[string]any { return encodeConfig(p) }

func (p *TraitPredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

// HealthPredicate matches pawns with a given health condition, or with any
// condition when Hediff is empty.
type HealthPredicate struct {
	Hediff string `mapstructure:"hediff"`
}

func (p *HealthPredicate) PreFilter(e Entity) bool { return isPawn(e) }

func (p *HealthPredicate) Applies(e Entity) bool {
	v, _ := e.Property(PropHediffs)
	hediffs := stringList(v)
	if p.Hediff == "" {
		return len(hediffs) > 0
	}
	return slices.Contains(hediffs, p.Hediff)
}

func (p *HealthPredicate) Config() map[string]any { return encodeConfig(p) }

func (p *HealthPredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

// SelectionPredicate wraps one sub-node picked from a catalog category.
type SelectionPredicate struct {
	Category string `mapstructure:"category"`

	Sub *Node `mapstructure:"-"`
}

func (p *SelectionPredicate) PreFilter(Entity) bool { return true }

func (p *SelectionPredicate) Applies(e Entity) bool {
	if p.Sub == nil {
		return false
	}
	if !p.Sub.Enabled {
		return true
	}
	return p.Sub.AppliesTo(e)
}

func (p *SelectionPredicate) Config() map[string]any {
	return map[string]any{"category": p.Category}
}

func (p *SelectionPredicate) SetConfig(cfg map[string]any) error { return decodeConfig(cfg, p) }

func (p *SelectionPredicate) Nodes() []*Node {
	if p.Sub == nil {
		return nil
	}
	return []*Node{p.Sub}
}

func (p *SelectionPredicate) SetNodes(nodes []*Node) {
	p.Sub = nil
	if len(nodes) > 0 {
		p.Sub = nodes[0]
	}
}

// PostMake picks the first kind of the category as the initial selection.
func (p *SelectionPredicate) PostMake(c *Catalog) error {
	if p.Category == "" || p.Sub != nil {
		return nil
	}
	kinds := c.CategoryKinds(p.Category, true)
	if len(kinds) == 0 {
		return fmt.Errorf("selection category %q has no kinds", p.Category)
	}
	sub, err := c.NewNode(kinds[0].ID)
	if err != nil {
		return err
	}
	p.Sub = sub
	return nil
}

// Select replaces the sub-node with a fresh node of kindID.
func (p *SelectionPredicate) Select(c *Catalog, kindID string) error {
	k, err := c.Lookup(kindID)
	if err != nil {
		return err
	}
	if k.Category != p.Category {
		return fmt.Errorf("kind %q is not in category %q", kindID, p.Category)
	}
	sub, err := c.NewNode(kindID)
	if err != nil {
		return err
	}
	p.Sub = sub
	return nil
}

// FoggedPredicate matches entities hidden from the player.
type FoggedPredicate struct{}

func (p *FoggedPredicate) PreFilter(Entity) bool { return true }

func (p *FoggedPredicate) Applies(e Entity) bool {
	v, _ := e.Property(PropFogged)
	b, _ := v.(bool)
	return b
}

// PropertyEqualsPredicate matches a string property against a value. It backs
// the developer class and drawer kinds.
type PropertyEqualsPredicate struct {
	Property string `mapstructure:"property"`
	Value    string `mapstructure:"value"`
}

func (p *PropertyEqualsPredicate) PreFilter(e Entity) bool {
	return HasProperty(e, p.Property)
}

func (p *PropertyEqualsPredicate) Applies(e Entity) bool {
	v, ok := e.Property(p.Property)
	if !ok || p.Value == "" {
		return false
	}
	return fmt.Sprint(v) == p.Value
}

func (p *PropertyEqualsPredicate) Config() map[string]any { return encodeConfig(p) }

func (p *PropertyEqualsPredicate) SetConfig(cfg map[string]any) error {
	return decodeConfig(cfg, p)
}

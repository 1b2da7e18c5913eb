// Package filter composes, evaluates and clones predicate trees over a
// collection of entities.
package filter

// Position is a 2-D map cell.
type Position struct {
	X int `json:"x" yaml:"x"`
	Z int `json:"z" yaml:"z"`
}

// linear is the position component of the result sort key.
func (p Position) linear() int {
	return p.X + p.Z*1000
}

// Entity is the narrow view of a world object that predicates see.
type Entity interface {
	ID() string
	// KindID identifies the entity kind (first sort key).
	KindID() int
	KindName() string
	// VariantID identifies the material or variant, 0 when absent.
	VariantID() int
	Label() string
	Position() Position
	// Contained reports whether the entity is a packed or carried
	// representation of another entity, such as a corpse or minified building.
	Contained() bool
	// Property probes an optional capability.
	Property(name string) (any, bool)
}

// Context is the scope a tree is evaluated and bound against, usually one map.
type Context interface {
	Key() string
	Label() string
	// Perceivable is false for entities hidden from the player.
	Perceivable(e Entity) bool
	// Reference resolves a portable key into a live reference.
	Reference(kind, key string) (Ref, bool)
}

// Ref is a live reference valid only inside the context that produced it.
type Ref interface {
	RefKind() string
	RefKey() string
	Contains(e Entity) bool
}

// HasProperty reports whether e exposes property p.
func HasProperty(e Entity, p string) bool {
	_, ok := e.Property(p)
	return ok
}

// Well-known entity properties probed by the shipped predicates.
const (
	PropForbidden = "forbidden"
	PropPawn      = "pawn"
	PropTraits    = "traits"
	PropHediffs   = "hediffs"
	PropFogged    = "fogged"
	PropClass     = "class"
	PropDrawer    = "drawer"

	// PropSkillPrefix is followed by a skill name, e.g. "skill.mining".
	PropSkillPrefix = "skill."
)

// Reference kinds understood by Context.Reference.
const (
	RefZone = "zone"
)

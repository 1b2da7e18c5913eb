package world

import (
	"fmt"

	"github.com/listeverything/finder/internal/filter"
)

// Sources returns the base collection table for maps of this package.
func Sources() filter.SourceTable {
	return filter.SourceTable{
		filter.BaseSelectable: collect(func(t *Thing) bool {
			return t.Category != CategoryFilth && !t.Inventory
		}),
		filter.BaseEveryone: collect(isPawn),
		filter.BaseColonists: collect(func(t *Thing) bool {
			return isPawn(t) && t.Colonist
		}),
		filter.BaseAnimals: collect(func(t *Thing) bool {
			return isPawn(t) && !t.Humanlike
		}),
		filter.BaseItems:     collect(isHaulable),
		filter.BaseBuildings: collect(categoryIs(CategoryBuilding)),
		filter.BaseNatural:   collect(categoryIs(CategoryNatural)),
		filter.BasePlants:    collect(categoryIs(CategoryPlant)),
		filter.BaseInventory: collect(func(t *Thing) bool { return t.Inventory }),
		filter.BaseAll:       collect(func(*Thing) bool { return true }),

		filter.BaseHaulables: collect(isHaulable),
		filter.BaseMergables: collect(func(t *Thing) bool {
			return isHaulable(t) && t.StackLimit > 1 && t.Stack < t.StackLimit
		}),
		filter.BaseFilthInHomeArea: collect(func(t *Thing) bool {
			return t.Category == CategoryFilth && t.HomeArea
		}),
	}
}

func isPawn(t *Thing) bool { return t.Category == CategoryPawn }

func isHaulable(t *Thing) bool { return t.Category == CategoryItem && !t.Inventory }

func categoryIs(c string) func(*Thing) bool {
	return func(t *Thing) bool { return t.Category == c }
}

func collect(keep func(*Thing) bool) filter.SourceFunc {
	return func(ctx filter.Context) ([]filter.Entity, error) {
		m, ok := ctx.(*Map)
		if !ok {
			return nil, fmt.Errorf("context %T is not a world map", ctx)
		}
		things := m.Things()
		out := make([]filter.Entity, 0, len(things))
		for _, t := range things {
			if keep(t) {
				out = append(out, t)
			}
		}
		return out, nil
	}
}

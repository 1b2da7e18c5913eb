package searches

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/listeverything/finder/internal/datastore"
	"github.com/listeverything/finder/internal/datastore/entities"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/world"
)

const testWorld = `
maps:
  - key: home
    zones:
      - key: Stockpile 1
        cells: [{x: 1, z: 1}]
    things:
      - {id: steel, def: Steel, def_id: 10, label: steel x50, category: item, pos: {x: 1, z: 1}}
      - {id: gold, def: Gold, def_id: 11, label: gold x5, category: item, pos: {x: 9, z: 9}}
  - key: outpost
    things:
      - {id: wood, def: Wood, def_id: 12, label: wood, category: item, pos: {x: 1, z: 1}}
`

func newTestLibrary(t *testing.T) (*Library, repository.SearchRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(datastore.Models()...))

	repo := repository.NewSearchRepository(db)
	return NewLibrary(repo, nil, nil), repo
}

func zoneTree(t *testing.T) *filter.Tree {
	t.Helper()
	n, err := filter.Default().NewNode("zone")
	require.NoError(t, err)
	require.NoError(t, n.Pred.(filter.Configurable).SetConfig(map[string]any{"zone": "Stockpile 1"}))

	tree := filter.NewTree("stockpiled")
	tree.Base = filter.BaseItems
	tree.Add(n)
	return tree
}

func TestLibrary_SaveAndLoad(t *testing.T) {
	t.Parallel()

	lib, _ := newTestLibrary(t)
	w, err := world.Parse([]byte(testWorld))
	require.NoError(t, err)

	require.NoError(t, lib.Save(t.Context(), "stock", zoneTree(t), false))

	home, _ := w.Context("home")
	tree, err := lib.Load(t.Context(), "stock", home)
	require.NoError(t, err)
	assert.Equal(t, "stock", tree.Name)

	ev := filter.NewEvaluator(world.Sources(), nil)
	got := ev.Evaluate(tree, home)
	require.Len(t, got, 1)
	assert.Equal(t, "steel", got[0].ID())

	outpost, _ := w.Context("outpost")
	tree, err = lib.Load(t.Context(), "stock", outpost)
	require.NoError(t, err)
	assert.Empty(t, ev.Evaluate(tree, outpost), "zone missing from outpost matches nothing")
}

func TestLibrary_Duplicate(t *testing.T) {
	t.Parallel()

	lib, _ := newTestLibrary(t)
	first := zoneTree(t)
	require.NoError(t, lib.Save(t.Context(), "stock", first, false))

	second := filter.NewTree("other")
	second.Base = filter.BaseAll
	err := lib.Save(t.Context(), "stock", second, false)
	require.ErrorIs(t, err, ErrDuplicateName)

	p, err := lib.Portable(t.Context(), "stock")
	require.NoError(t, err)
	assert.Equal(t, filter.BaseItems, p.Base, "stored search untouched")

	require.NoError(t, lib.Save(t.Context(), "stock", second, true))
	p, err = lib.Portable(t.Context(), "stock")
	require.NoError(t, err)
	assert.Equal(t, filter.BaseAll, p.Base, "overwrite invalidates the cache")
}

func TestLibrary_RenameDeleteNames(t *testing.T) {
	t.Parallel()

	lib, _ := newTestLibrary(t)
	require.NoError(t, lib.Save(t.Context(), "b", zoneTree(t), false))
	require.NoError(t, lib.Save(t.Context(), "a", zoneTree(t), false))

	names, err := lib.Names(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	_, err = lib.Portable(t.Context(), "a")
	require.NoError(t, err)

	require.ErrorIs(t, lib.Rename(t.Context(), "a", "b", false), ErrDuplicateName)
	require.NoError(t, lib.Rename(t.Context(), "a", "c", false))
	_, err = lib.Load(t.Context(), "a", nil)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, lib.Delete(t.Context(), "c"))
	require.ErrorIs(t, lib.Delete(t.Context(), "c"), ErrNotFound)

	names, err = lib.Names(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}

func TestLibrary_UnreadableRow(t *testing.T) {
	t.Parallel()

	lib, repo := newTestLibrary(t)
	require.NoError(t, repo.SaveSearch(t.Context(), &entities.SavedSearch{Name: "bad", Tree: "{"}, false))

	_, err := lib.Load(t.Context(), "bad", nil)
	assert.Error(t, err)
}

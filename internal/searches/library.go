// Package searches is the global library of named filters. Saved searches are
// stored in portable form and bound to a context each time they are loaded.
package searches

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/listeverything/finder/internal/datastore/entities"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
)

var (
	ErrDuplicateName = repository.ErrDuplicateName
	ErrNotFound      = repository.ErrNotFound
)

const (
	cacheExpiration = 10 * time.Minute
	cacheCleanup    = 20 * time.Minute
)

// Library stores named filters. Decoded portable trees are cached; every
// write invalidates the affected names.
type Library struct {
	repo    repository.SearchRepository
	catalog *filter.Catalog
	cache   *cache.Cache
	log     logger.Logger
}

// NewLibrary creates a library over repo. A nil catalog means filter.Default().
func NewLibrary(repo repository.SearchRepository, catalog *filter.Catalog, log logger.Logger) *Library {
	if catalog == nil {
		catalog = filter.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Library{
		repo:    repo,
		catalog: catalog,
		cache:   cache.New(cacheExpiration, cacheCleanup),
		log:     log.With(logger.String("component", "searches")),
	}
}

// Save stores a portable copy of tree under name. Without overwrite an
// existing name yields ErrDuplicateName and the stored search is untouched.
func (l *Library) Save(ctx context.Context, name string, tree *filter.Tree, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("failed to save search: empty name")
	}
	p := filter.ToPortable(tree)
	p.Name = name
	data, err := filter.MarshalPortableJSON(p)
	if err != nil {
		return fmt.Errorf("failed to encode search %q: %w", name, err)
	}

	l.cache.Delete(name)
	if err := l.repo.SaveSearch(ctx, &entities.SavedSearch{Name: name, Tree: string(data)}, overwrite); err != nil {
		return err
	}
	l.log.Debug("search saved", logger.String("name", name), logger.Bool("overwrite", overwrite))
	return nil
}

// Portable returns the stored form of name.
func (l *Library) Portable(ctx context.Context, name string) (filter.PortableTree, error) {
	if v, ok := l.cache.Get(name); ok {
		return v.(filter.PortableTree), nil
	}
	row, err := l.repo.GetSearch(ctx, name)
	if err != nil {
		return filter.PortableTree{}, err
	}
	p, err := filter.UnmarshalPortableJSON([]byte(row.Tree))
	if err != nil {
		return filter.PortableTree{}, fmt.Errorf("failed to decode search %q: %w", name, err)
	}
	p.Name = row.Name
	l.cache.SetDefault(name, p)
	return p, nil
}

// Load decodes name and binds its references against worldCtx. Nodes of
// unknown kinds are dropped and references missing from worldCtx are reset;
// both are logged. A nil worldCtx returns the unbound form.
func (l *Library) Load(ctx context.Context, name string, worldCtx filter.Context) (*filter.Tree, error) {
	p, err := l.Portable(ctx, name)
	if err != nil {
		return nil, err
	}
	tree, _ := filter.FromPortable(p, l.catalog, l.log.With(logger.String("search", name)))
	if worldCtx == nil {
		return tree, nil
	}
	return filter.Clone(tree, worldCtx, l.log), nil
}

// Delete removes name.
func (l *Library) Delete(ctx context.Context, name string) error {
	l.cache.Delete(name)
	return l.repo.DeleteSearch(ctx, name)
}

// Rename moves oldName to newName; with overwrite an existing newName is replaced.
func (l *Library) Rename(ctx context.Context, oldName, newName string, overwrite bool) error {
	if newName == "" {
		return fmt.Errorf("failed to rename search %q: empty name", oldName)
	}
	l.cache.Delete(oldName)
	l.cache.Delete(newName)
	return l.repo.RenameSearch(ctx, oldName, newName, overwrite)
}

// Names lists the stored names in order.
func (l *Library) Names(ctx context.Context) ([]string, error) {
	rows, err := l.repo.ListSearches(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(rows))
	for i := range rows {
		names[i] = rows[i].Name
	}
	return names, nil
}

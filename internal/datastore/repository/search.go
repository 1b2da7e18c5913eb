package repository

import (
	"context"

	"github.com/listeverything/finder/internal/datastore/entities"
)

// SearchRepository stores the global library of saved searches.
type SearchRepository interface {
	ListSearches(ctx context.Context) ([]entities.SavedSearch, error)
	GetSearch(ctx context.Context, name string) (*entities.SavedSearch, error)
	// SaveSearch inserts or, with overwrite, replaces the search named s.Name.
	SaveSearch(ctx context.Context, s *entities.SavedSearch, overwrite bool) error
	RenameSearch(ctx context.Context, oldName, newName string, overwrite bool) error
	DeleteSearch(ctx context.Context, name string) error
}

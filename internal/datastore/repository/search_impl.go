package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/listeverything/finder/internal/datastore/entities"
)

// searchRepository implements SearchRepository.
type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository creates a new SearchRepository.
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

// ListSearches returns every saved search ordered by name.
func (r *searchRepository) ListSearches(ctx context.Context) ([]entities.SavedSearch, error) {
	var searches []entities.SavedSearch
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&searches).Error; err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	return searches, nil
}

// GetSearch returns a saved search by name.
// Returns ErrNotFound if it does not exist.
func (r *searchRepository) GetSearch(ctx context.Context, name string) (*entities.SavedSearch, error) {
	return findSearch(r.db.WithContext(ctx), name)
}

func findSearch(tx *gorm.DB, name string) (*entities.SavedSearch, error) {
	var s entities.SavedSearch
	if err := tx.Where("name = ?", name).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("saved search %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get saved search %q: %w", name, err)
	}
	return &s, nil
}

// SaveSearch inserts s, or replaces the existing row of the same name when
// overwrite is set. The existing row is untouched on ErrDuplicateName.
func (r *searchRepository) SaveSearch(ctx context.Context, s *entities.SavedSearch, overwrite bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findSearch(tx, s.Name)
		switch {
		case errors.Is(err, ErrNotFound):
			s.ID = 0
			if err := tx.Create(s).Error; err != nil {
				return fmt.Errorf("failed to create saved search: %w", err)
			}
			return nil
		case err != nil:
			return err
		case !overwrite:
			return fmt.Errorf("saved search %q: %w", s.Name, ErrDuplicateName)
		}

		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
		if err := tx.Save(s).Error; err != nil {
			return fmt.Errorf("failed to update saved search: %w", err)
		}
		return nil
	})
}

// RenameSearch renames oldName. With overwrite an existing newName is deleted first.
func (r *searchRepository) RenameSearch(ctx context.Context, oldName, newName string, overwrite bool) error {
	if oldName == newName {
		_, err := r.GetSearch(ctx, oldName)
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := findSearch(tx, oldName)
		if err != nil {
			return err
		}
		dst, err := findSearch(tx, newName)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case !overwrite:
			return fmt.Errorf("saved search %q: %w", newName, ErrDuplicateName)
		default:
			if err := tx.Delete(&entities.SavedSearch{}, dst.ID).Error; err != nil {
				return fmt.Errorf("failed to replace saved search %q: %w", newName, err)
			}
		}
		if err := tx.Model(src).Update("name", newName).Error; err != nil {
			return fmt.Errorf("failed to rename saved search %q: %w", oldName, err)
		}
		return nil
	})
}

// DeleteSearch deletes a saved search by name.
func (r *searchRepository) DeleteSearch(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&entities.SavedSearch{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete saved search %q: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("saved search %q: %w", name, ErrNotFound)
	}
	return nil
}

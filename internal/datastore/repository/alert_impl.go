package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/listeverything/finder/internal/datastore/entities"
)

// alertRepository implements AlertRepository.
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// ListAlerts returns alerts matching the filter, ordered by context then name.
func (r *alertRepository) ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.SavedAlert, error) {
	var alerts []entities.SavedAlert
	query := r.db.WithContext(ctx)
	if filter.ContextKey != nil {
		query = query.Where("context_key = ?", *filter.ContextKey)
	}
	if err := query.Order("context_key ASC, name ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert returns one alert. Returns ErrNotFound if it does not exist.
func (r *alertRepository) GetAlert(ctx context.Context, contextKey, name string) (*entities.SavedAlert, error) {
	return findAlert(r.db.WithContext(ctx), contextKey, name)
}

func findAlert(tx *gorm.DB, contextKey, name string) (*entities.SavedAlert, error) {
	var a entities.SavedAlert
	if err := tx.Where("context_key = ? AND name = ?", contextKey, name).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert %q: %w", name, err)
	}
	return &a, nil
}

// SaveAlert inserts a, or replaces the alert of the same context and name
// when overwrite is set.
func (r *alertRepository) SaveAlert(ctx context.Context, a *entities.SavedAlert, overwrite bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findAlert(tx, a.ContextKey, a.Name)
		switch {
		case errors.Is(err, ErrNotFound):
			a.ID = 0
			if err := tx.Create(a).Error; err != nil {
				return fmt.Errorf("failed to create alert: %w", err)
			}
			return nil
		case err != nil:
			return err
		case !overwrite:
			return fmt.Errorf("alert %q: %w", a.Name, ErrDuplicateName)
		}

		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
		if err := tx.Save(a).Error; err != nil {
			return fmt.Errorf("failed to update alert: %w", err)
		}
		return nil
	})
}

// RenameAlert renames an alert within its context.
func (r *alertRepository) RenameAlert(ctx context.Context, contextKey, oldName, newName string, overwrite bool) error {
	if oldName == newName {
		_, err := r.GetAlert(ctx, contextKey, oldName)
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := findAlert(tx, contextKey, oldName)
		if err != nil {
			return err
		}
		dst, err := findAlert(tx, contextKey, newName)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case !overwrite:
			return fmt.Errorf("alert %q: %w", newName, ErrDuplicateName)
		default:
			if err := tx.Delete(&entities.SavedAlert{}, dst.ID).Error; err != nil {
				return fmt.Errorf("failed to replace alert %q: %w", newName, err)
			}
		}
		if err := tx.Model(src).Update("name", newName).Error; err != nil {
			return fmt.Errorf("failed to rename alert %q: %w", oldName, err)
		}
		return nil
	})
}

// DeleteAlert deletes one alert.
func (r *alertRepository) DeleteAlert(ctx context.Context, contextKey, name string) error {
	result := r.db.WithContext(ctx).
		Where("context_key = ? AND name = ?", contextKey, name).
		Delete(&entities.SavedAlert{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert %q: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert %q: %w", name, ErrNotFound)
	}
	return nil
}

// DeleteContext deletes the alerts bound to contextKey. The all-contexts
// scope cannot be deleted this way.
func (r *alertRepository) DeleteContext(ctx context.Context, contextKey string) (int64, error) {
	if contextKey == "" {
		return 0, fmt.Errorf("failed to delete context alerts: empty context key")
	}
	result := r.db.WithContext(ctx).Where("context_key = ?", contextKey).Delete(&entities.SavedAlert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete alerts of context %q: %w", contextKey, result.Error)
	}
	return result.RowsAffected, nil
}

// ReplaceAlerts deletes every alert and inserts alerts.
func (r *alertRepository) ReplaceAlerts(ctx context.Context, alerts []entities.SavedAlert) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.SavedAlert{}).Error; err != nil {
			return fmt.Errorf("failed to clear alerts: %w", err)
		}
		if len(alerts) == 0 {
			return nil
		}
		for i := range alerts {
			alerts[i].ID = 0
		}
		if err := tx.Create(&alerts).Error; err != nil {
			return fmt.Errorf("failed to store alerts: %w", err)
		}
		return nil
	})
}

// SaveHistory saves an alert history entry.
func (r *alertRepository) SaveHistory(ctx context.Context, history *entities.AlertHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return fmt.Errorf("failed to save alert history: %w", err)
	}
	return nil
}

// ListHistory returns alert history entries matching the filter with pagination.
func (r *alertRepository) ListHistory(ctx context.Context, filter AlertHistoryFilter) ([]entities.AlertHistory, int64, error) {
	var items []entities.AlertHistory
	var total int64

	scope := func(q *gorm.DB) *gorm.DB {
		if filter.ContextKey != nil {
			q = q.Where("context_key = ?", *filter.ContextKey)
		}
		if filter.AlertName != "" {
			q = q.Where("alert_name = ?", filter.AlertName)
		}
		return q
	}

	if err := scope(r.db.WithContext(ctx).Model(&entities.AlertHistory{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alert history: %w", err)
	}

	query := scope(r.db.WithContext(ctx)).Order("fired_at DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alert history: %w", err)
	}
	return items, total, nil
}

// DeleteHistory deletes all alert history entries.
func (r *alertRepository) DeleteHistory(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&entities.AlertHistory{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete alert history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteHistoryBefore deletes alert history entries older than the given time.
func (r *alertRepository) DeleteHistoryBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("fired_at < ?", before).Delete(&entities.AlertHistory{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete alert history before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}

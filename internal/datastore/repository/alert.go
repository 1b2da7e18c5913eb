package repository

import (
	"context"
	"time"

	"github.com/listeverything/finder/internal/datastore/entities"
)

// AlertRepository stores standing alerts, keyed by (context, name), and their
// firing history.
type AlertRepository interface {
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.SavedAlert, error)
	GetAlert(ctx context.Context, contextKey, name string) (*entities.SavedAlert, error)
	SaveAlert(ctx context.Context, a *entities.SavedAlert, overwrite bool) error
	RenameAlert(ctx context.Context, contextKey, oldName, newName string, overwrite bool) error
	DeleteAlert(ctx context.Context, contextKey, name string) error
	// DeleteContext removes every alert bound to a destroyed context.
	DeleteContext(ctx context.Context, contextKey string) (int64, error)
	// ReplaceAlerts swaps the whole alert table for alerts in one transaction.
	ReplaceAlerts(ctx context.Context, alerts []entities.SavedAlert) error

	// History
	SaveHistory(ctx context.Context, history *entities.AlertHistory) error
	ListHistory(ctx context.Context, filter AlertHistoryFilter) ([]entities.AlertHistory, int64, error)
	DeleteHistory(ctx context.Context) (int64, error)
	DeleteHistoryBefore(ctx context.Context, before time.Time) (int64, error)
}

// AlertFilter controls alert listing queries.
type AlertFilter struct {
	// ContextKey limits the listing to one context when set.
	ContextKey *string
}

// AlertHistoryFilter controls history listing queries.
type AlertHistoryFilter struct {
	ContextKey *string
	AlertName  string
	Limit      int
	Offset     int
}

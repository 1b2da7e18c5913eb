package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listeverything/finder/internal/datastore/entities"
)

func newSavedAlert(contextKey, name string) *entities.SavedAlert {
	return &entities.SavedAlert{
		ContextKey:   contextKey,
		Name:         name,
		Tree:         "{}",
		Priority:     "medium",
		SustainTicks: 600,
		Threshold:    1,
		Comparison:   "greater_or_equal",
		MaxCulprits:  16,
		State:        "idle",
	}
}

func TestAlertRepository_NamesArePerContext(t *testing.T) {
	t.Parallel()
	repo := NewAlertRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "raiders"), false))
	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("outpost", "raiders"), false))
	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("", "raiders"), false))

	err := repo.SaveAlert(ctx, newSavedAlert("home", "raiders"), false)
	require.ErrorIs(t, err, ErrDuplicateName)

	all, err := repo.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	home, err := repo.ListAlerts(ctx, AlertFilter{ContextKey: ptr("home")})
	require.NoError(t, err)
	require.Len(t, home, 1)
	assert.Equal(t, "home", home[0].ContextKey)
}

func TestAlertRepository_OverwriteKeepsZeroThreshold(t *testing.T) {
	t.Parallel()
	repo := NewAlertRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "empty larder"), false))

	a := newSavedAlert("home", "empty larder")
	a.Threshold = 0
	a.Comparison = "equal"
	require.NoError(t, repo.SaveAlert(ctx, a, true))

	got, err := repo.GetAlert(ctx, "home", "empty larder")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Threshold)
	assert.Equal(t, "equal", got.Comparison)
}

func TestAlertRepository_RenameAndDelete(t *testing.T) {
	t.Parallel()
	repo := NewAlertRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "a"), false))
	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "b"), false))

	require.ErrorIs(t, repo.RenameAlert(ctx, "home", "a", "b", false), ErrDuplicateName)
	require.NoError(t, repo.RenameAlert(ctx, "home", "a", "b", true))
	_, err := repo.GetAlert(ctx, "home", "a")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.DeleteAlert(ctx, "home", "b"))
	require.ErrorIs(t, repo.DeleteAlert(ctx, "home", "b"), ErrNotFound)
}

func TestAlertRepository_DeleteContext(t *testing.T) {
	t.Parallel()
	repo := NewAlertRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "a"), false))
	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "b"), false))
	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("", "a"), false))

	n, err := repo.DeleteContext(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.DeleteContext(ctx, "")
	require.Error(t, err)

	all, err := repo.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].ContextKey)
}

func TestAlertRepository_ReplaceAlerts(t *testing.T) {
	t.Parallel()
	repo := NewAlertRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.SaveAlert(ctx, newSavedAlert("home", "old"), false))
	require.NoError(t, repo.ReplaceAlerts(ctx, []entities.SavedAlert{
		*newSavedAlert("home", "new1"),
		*newSavedAlert("outpost", "new2"),
	}))

	all, err := repo.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new1", all[0].Name)
	assert.Equal(t, "new2", all[1].Name)

	require.NoError(t, repo.ReplaceAlerts(ctx, nil))
	all, err = repo.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAlertRepository_History(t *testing.T) {
	t.Parallel()
	repo := NewAlertRepository(setupTestDB(t))
	ctx := t.Context()

	now := time.Now()
	for i, age := range []time.Duration{0, time.Hour, 48 * time.Hour, 72 * time.Hour} {
		require.NoError(t, repo.SaveHistory(ctx, &entities.AlertHistory{
			ContextKey: "home",
			AlertName:  "raiders",
			FiredAt:    now.Add(-age),
			FiredTick:  int64(i),
			Count:      i + 1,
		}))
	}
	require.NoError(t, repo.SaveHistory(ctx, &entities.AlertHistory{
		ContextKey: "outpost", AlertName: "fire", FiredAt: now, Count: 1,
	}))

	items, total, err := repo.ListHistory(ctx, AlertHistoryFilter{ContextKey: ptr("home"), Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Count, "newest first")

	items, _, err = repo.ListHistory(ctx, AlertHistoryFilter{AlertName: "fire"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	deleted, err := repo.DeleteHistoryBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = repo.DeleteHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

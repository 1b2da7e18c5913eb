//go:build integration

package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/datastore"
	"github.com/listeverything/finder/internal/datastore/entities"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/testutil/containers"
)

// MySQL test container shared across all tests in this package
var (
	mysqlContainer *containers.MySQLContainer
	testDB         *gorm.DB
)

// TestMain starts MySQL once and migrates the schema through datastore.Open.
func TestMain(m *testing.M) {
	var err error
	ctx := context.Background()

	mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
	if err != nil {
		panic("failed to create MySQL container: " + err.Error())
	}

	testDB, err = datastore.Open(conf.DatabaseSettings{
		Driver: conf.DriverMySQL,
		DSN:    mysqlContainer.DSN(),
	}, false)
	if err != nil {
		_ = mysqlContainer.Terminate(context.Background())
		panic("failed to open database: " + err.Error())
	}

	code := m.Run()

	_ = datastore.Close(testDB)
	if err := mysqlContainer.Terminate(context.Background()); err != nil {
		panic("failed to terminate MySQL container: " + err.Error())
	}
	os.Exit(code)
}

func TestMySQL_SearchRepository(t *testing.T) {
	repo := repository.NewSearchRepository(testDB)
	ctx := t.Context()

	require.NoError(t, repo.SaveSearch(ctx, &entities.SavedSearch{Name: "mysql steel", Tree: `{"name":"a"}`}, false))
	require.ErrorIs(t, repo.SaveSearch(ctx, &entities.SavedSearch{Name: "mysql steel", Tree: "{}"}, false), repository.ErrDuplicateName)
	require.NoError(t, repo.RenameSearch(ctx, "mysql steel", "mysql iron", false))

	got, err := repo.GetSearch(ctx, "mysql iron")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a"}`, got.Tree)
	require.NoError(t, repo.DeleteSearch(ctx, "mysql iron"))
}

func TestMySQL_AlertRepository(t *testing.T) {
	repo := repository.NewAlertRepository(testDB)
	ctx := t.Context()

	alert := &entities.SavedAlert{
		ContextKey: "home", Name: "raiders", Tree: "{}",
		Priority: "critical", Threshold: 0, Comparison: "equal", MaxCulprits: 16, State: "idle",
	}
	require.NoError(t, repo.SaveAlert(ctx, alert, false))
	require.ErrorIs(t, repo.SaveAlert(ctx, alert, false), repository.ErrDuplicateName)

	got, err := repo.GetAlert(ctx, "home", "raiders")
	require.NoError(t, err)
	assert.Zero(t, got.Threshold)

	require.NoError(t, repo.SaveHistory(ctx, &entities.AlertHistory{
		ContextKey: "home", AlertName: "raiders", FiredAt: time.Now().Add(-48 * time.Hour), Count: 3,
	}))
	deleted, err := repo.DeleteHistoryBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err := repo.DeleteContext(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

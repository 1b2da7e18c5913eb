// Package datastore opens the finder database.
package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/datastore/entities"
)

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&entities.SavedSearch{},
		&entities.SavedAlert{},
		&entities.AlertHistory{},
	}
}

// Open connects to the configured database and migrates the schema.
func Open(settings conf.DatabaseSettings, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch settings.Driver {
	case conf.DriverSQLite, "":
		dialector = sqlite.Open(settings.DSN)
	case conf.DriverMySQL:
		dialector = mysql.Open(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", settings.Driver)
	}

	level := gorm_logger.Silent
	if debug {
		level = gorm_logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gorm_logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", settings.Driver, err)
	}

	if settings.Driver != conf.DriverMySQL {
		// SQLite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

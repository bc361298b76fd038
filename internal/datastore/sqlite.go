package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// SQLiteStore implements Interface on a local SQLite file.
type SQLiteStore struct {
	DataStore
	Path string
}

// Open creates the parent directory if needed, opens the file and migrates.
func (store *SQLiteStore) Open() error {
	if dir := filepath.Dir(store.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component(componentName).
				Category(errors.CategoryFileIO).
				Context("operation", "create_database_directory").
				FileContext(store.Path, 0).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(store.Path), gormConfig(store.Logger))
	if err != nil {
		return dbError(err, "open_sqlite")
	}
	// single writer; avoids SQLITE_BUSY under concurrent saves
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return dbError(err, "configure_sqlite")
	}

	store.DB = db
	store.Logger.Info("catalog opened", logger.String("db_type", "sqlite"), logger.String("path", store.Path))
	return performAutoMigration(db, "sqlite", store.Logger)
}

// Close closes the SQLite connection.
func (store *SQLiteStore) Close() error {
	return store.closeDB("sqlite")
}

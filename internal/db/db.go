package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the ledger connection shared by the server and batch scripts.
var DB *gorm.DB

// Init opens the sqlite ledger at databasePath and migrates its tables.
// An empty path leaves DB nil, which disables the ledger.
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		DB = nil
		return nil
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Migrate creates or updates the ledger tables.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&ProcessedIssue{},
		&ModerationEvent{},
	)
}

// Close releases the shared connection.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}

// Package testdb opens throwaway sqlite databases for package tests.
package testdb

import (
	"path/filepath"
	"testing"

	"shifttask-backend/pkg/database"

	"gorm.io/gorm"
)

// Open creates a sqlite file under t.TempDir, migrates models and closes it on cleanup.
func Open(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"site_tracker/internal/models"
)

// OpenSQLite returns a migrated in-memory database private to the test.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// every new connection to :memory: would be a fresh, empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.VisitSession{}, &models.VisitHistoryRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// FixedClock returns a clock function frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

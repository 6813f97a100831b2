// Package repo implements the data persistence layer for domain entities,
// backed by GORM over the pure-Go SQLite driver. This file contains database
// bootstrapping and per-service schema migration.
package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/clipr-io/clipr/internal/domain"
)

// ErrNotFound is the repo-level sentinel for a missing row, wrapping the
// driver-specific condition so callers never match on gorm internals.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is the repo-level sentinel for a unique-constraint violation.
// The url service treats it as the retry signal for code generation.
var ErrDuplicate = errors.New("duplicate unique field")

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs, bounds
// the pool, and wires the OpenTelemetry tracing plugin.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist, instead of a
	// misleading sqlite "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// MigrateAuth creates the auth service's schema.
func MigrateAuth(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{})
}

// MigrateURLs creates the url service's schema. The unique index on
// short_code is load-bearing: it is the final arbiter for concurrent code
// generation.
func MigrateURLs(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ShortLink{})
}

// IsNotFound reports whether err means "no matching row", across the repo
// sentinel and GORM's own.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite: "UNIQUE constraint failed"; Postgres: "duplicate key value
	// violates unique constraint".
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

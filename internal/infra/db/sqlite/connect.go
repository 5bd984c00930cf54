// Package sqlite is the default cache store: a single-file SQLite database
// accessed through gorm.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options for Open.
type Options struct {
	Path     string
	LogLevel string // silent, error, warn, info
}

// Open opens (creating if needed) the database at opts.Path and migrates the
// log_records table.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		opts.Path = "bug_tracker.db"
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}

	var level gormlogger.LogLevel
	switch strings.ToLower(opts.LogLevel) {
	case "error":
		level = gormlogger.Error
	case "warn":
		level = gormlogger.Warn
	case "info":
		level = gormlogger.Info
	default:
		level = gormlogger.Silent
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", opts.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	// one writer; sqlite serializes writes anyway and this avoids SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	for _, p := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;"} {
		if err := db.WithContext(ctx).Exec(p).Error; err != nil {
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}
	if err := db.WithContext(ctx).AutoMigrate(&logRecordRow{}); err != nil {
		return nil, fmt.Errorf("migrate log_records: %w", err)
	}
	return db, nil
}

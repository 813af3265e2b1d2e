// Package repo is the persistence layer of the recipes backend. Functions
// here are thin wrappers over *gorm.DB that take a context and return
// domain models; transactions are opened by the caller where needed.
//
// This file opens SQLite (pure Go driver) or PostgreSQL, wires the gorm
// tracing plugin and migrates the schema.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/domain"
)

type poolSettings struct {
	maxOpen, maxIdle  int
	idleTime, maxLife time.Duration
}

var (
	sqlitePool   = poolSettings{maxOpen: 10, maxIdle: 10, idleTime: 5 * time.Minute, maxLife: 30 * time.Minute}
	postgresPool = poolSettings{maxOpen: 25, maxIdle: 10, idleTime: 5 * time.Minute, maxLife: 30 * time.Minute}
)

// sqlitePragmas run once after open. foreign_keys and busy_timeout are
// per-connection and are repeated in the DSN so every pooled connection
// enforces the cascades and waits on a locked writer.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Open connects to the store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return OpenPostgres(cfg.DSN)
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}

	dsn := withPragma(withPragma(path, "foreign_keys(1)"), "busy_timeout(5000)")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	tunePool(db, sqlitePool)
	return db, nil
}

// OpenPostgres opens a pool through the pgx-backed gorm driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	tunePool(db, postgresPool)
	return db, nil
}

func tunePool(db *gorm.DB, p poolSettings) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxIdleTime(p.idleTime)
	sqlDB.SetConnMaxLifetime(p.maxLife)
}

// EnableTracing registers the OpenTelemetry gorm plugin; queries become
// children of the request span carried in the statement context.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin())
}

// AutoMigrate creates or updates every table, index and CHECK constraint.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.All()...)
}

func withPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

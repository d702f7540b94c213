// Package probecache persists dependency probe results between test runs.
// Starting an interpreter and importing torch takes seconds, so results are kept in a
// small SQLite database for a configurable time.
package probecache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one cached probe result.
type Entry struct {
	// ID is derived from the interpreter, dependency and probe definition.
	ID         string `gorm:"primaryKey;size:16"`
	Dependency string `gorm:"index;not null"`
	Python     string
	Detected   bool
	Version    string
	Reason     string
	CheckedAt  time.Time `gorm:"index;not null"`
}

// TableName overrides the GORM default.
func (Entry) TableName() string {
	return "probe_results"
}

// Cache wraps the GORM connection holding probe results.
type Cache struct {
	db   *gorm.DB
	path string
}

// Config holds cache database options.
type Config struct {
	Path  string
	Debug bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// Open opens (creating if needed) the cache database and migrates its schema.
func Open(cfg Config) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode keeps parallel `go test` processes from tripping over WAL files.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Cache{db: db, path: cfg.Path}, nil
}

// Get returns the entry stored under id if it is younger than ttl.
// A non-positive ttl always misses.
func (c *Cache) Get(id string, ttl time.Duration) (*Entry, bool, error) {
	if ttl <= 0 {
		return nil, false, nil
	}

	var e Entry
	err := c.db.First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get probe %s: %w", id, err)
	}

	if time.Since(e.CheckedAt) > ttl {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put inserts or replaces an entry.
func (c *Cache) Put(e *Entry) error {
	if e.CheckedAt.IsZero() {
		e.CheckedAt = time.Now()
	}
	err := c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(e).Error
	if err != nil {
		return fmt.Errorf("put probe %s: %w", e.ID, err)
	}
	return nil
}

// List returns all entries, newest first.
func (c *Cache) List() ([]Entry, error) {
	var entries []Entry
	if err := c.db.Order("checked_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list probes: %w", err)
	}
	return entries, nil
}

// Purge deletes every entry and returns how many were removed.
func (c *Cache) Purge() (int64, error) {
	res := c.db.Where("1 = 1").Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge probes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the underlying connection.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

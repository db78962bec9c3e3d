package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fenwick/pageprime/internal/pack"
)

// Catalog is a SQLite-backed record of the last pack path and digest
// written for each device. The pageprime command does not open it: trace
// and replay neither read nor update the catalog.
type Catalog struct {
	db   *sql.DB
	path string
}

// catalogPath returns the filesystem path for the catalog database,
// $XDG_RUNTIME_DIR/pageprime/catalog.db or /tmp/pageprime-catalog.db.
func catalogPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "pageprime", "catalog.db")
	}
	return filepath.Join(os.TempDir(), "pageprime-catalog.db")
}

// OpenCatalog opens (or creates) the device-to-pack catalog.
func OpenCatalog() (*Catalog, error) {
	dbPath := catalogPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	c := &Catalog{db: db, path: dbPath}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) init() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS devices (
			device    TEXT PRIMARY KEY,
			pack_path TEXT NOT NULL,
			digest    TEXT NOT NULL,
			updated   INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Entry is one device's catalog record.
type Entry struct {
	PackPath string
	Digest   string
}

// Lookup returns the last recorded pack path and digest for dev.
func (c *Catalog) Lookup(dev pack.DeviceID) (Entry, bool) {
	var e Entry
	err := c.db.QueryRow("SELECT pack_path, digest FROM devices WHERE device = ?", dev.String()).
		Scan(&e.PackPath, &e.Digest)
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

// Update records dev's newest pack path and digest.
func (c *Catalog) Update(dev pack.DeviceID, packPath, digest string, updatedUnix int64) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO devices (device, pack_path, digest, updated) VALUES (?, ?, ?, ?)",
		dev.String(), packPath, digest, updatedUnix,
	)
	if err != nil {
		return fmt.Errorf("update catalog for %s: %w", dev, err)
	}
	return nil
}

// Path returns the filesystem path of the catalog database.
func (c *Catalog) Path() string { return c.path }

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// Package sqlite persists geocode and distance lookups in a local SQLite file
// so repeated roster loads do not hit the providers again.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"rider-router/internal/database"

	_ "modernc.org/sqlite"
)

const (
	memoryPath    = ":memory:"
	schemaVersion = 1
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_key  TEXT PRIMARY KEY,
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	cached_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS distance_cache (
	origin_key      TEXT NOT NULL,
	dest_key        TEXT NOT NULL,
	distance_meters REAL NOT NULL,
	duration_secs   REAL NOT NULL,
	cached_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (origin_key, dest_key)
);
`

// Store implements database.CacheStore on a single SQLite database.
// Writes are serialized through mu; SQLite allows one writer at a time anyway.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex

	geocodes  *geocodeCacheRepository
	distances *distanceCacheRepository
}

// New opens (or creates) the cache at path. ":memory:" opens a private in-memory database.
func New(path string) (*Store, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if path == memoryPath {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, path: path}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	s.geocodes = &geocodeCacheRepository{store: s}
	s.distances = &distanceCacheRepository{store: s}

	log.Printf("[CACHE] Opened SQLite cache: path=%s", path)
	return s, nil
}

func (s *Store) prepare() error {
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	if _, err := s.db.Exec(cacheSchema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	log.Printf("[CACHE] Schema created: version=%d", schemaVersion)
	return nil
}

// Path reports where the cache lives.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("[CACHE] WAL checkpoint failed: %v", err)
	}
	return s.db.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Geocodes() database.GeocodeCacheRepository   { return s.geocodes }
func (s *Store) Distances() database.DistanceCacheRepository { return s.distances }

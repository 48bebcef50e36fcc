package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rider-router/internal/models"
)

type geocodeCacheRepository struct {
	store *Store
}

func (r *geocodeCacheRepository) Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entry models.GeocodeCacheEntry
	err := r.store.db.QueryRowContext(ctx,
		`SELECT address_key, lat, lng, display_name FROM geocode_cache WHERE address_key = ?`, key,
	).Scan(&entry.Key, &entry.Coords.Lat, &entry.Coords.Lng, &entry.DisplayName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geocode cache entry: %w", err)
	}

	return &entry, nil
}

func (r *geocodeCacheRepository) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (address_key, lat, lng, display_name) VALUES (?, ?, ?, ?)
		 ON CONFLICT (address_key) DO UPDATE SET
		   lat = excluded.lat, lng = excluded.lng,
		   display_name = excluded.display_name, cached_at = CURRENT_TIMESTAMP`,
		entry.Key, entry.Coords.Lat, entry.Coords.Lng, entry.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("failed to set geocode cache entry: %w", err)
	}

	return nil
}

func (r *geocodeCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM geocode_cache"); err != nil {
		return fmt.Errorf("failed to clear geocode cache: %w", err)
	}

	return nil
}

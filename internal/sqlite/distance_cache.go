package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rider-router/internal/models"
)

// maxPairsPerQuery keeps batch lookups under SQLite's bound-parameter limit.
const maxPairsPerQuery = 400

type distanceCacheRepository struct {
	store *Store
}

func (r *distanceCacheRepository) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entry := models.DistanceCacheEntry{Origin: origin, Destination: dest}
	err := r.store.db.QueryRowContext(ctx,
		`SELECT distance_meters, duration_secs FROM distance_cache WHERE origin_key = ? AND dest_key = ?`,
		origin, dest,
	).Scan(&entry.DistanceMeters, &entry.DurationSecs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read distance %s -> %s: %w", origin, dest, err)
	}
	return &entry, nil
}

// GetBatch looks pairs up with row-value IN queries. Missing pairs are absent from the map.
func (r *distanceCacheRepository) GetBatch(ctx context.Context, pairs []models.AddressPair) (map[models.AddressPair]*models.DistanceCacheEntry, error) {
	found := make(map[models.AddressPair]*models.DistanceCacheEntry, len(pairs))

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for start := 0; start < len(pairs); start += maxPairsPerQuery {
		end := min(start+maxPairsPerQuery, len(pairs))
		if err := r.lookup(ctx, pairs[start:end], found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (r *distanceCacheRepository) lookup(ctx context.Context, pairs []models.AddressPair, found map[models.AddressPair]*models.DistanceCacheEntry) error {
	placeholders := strings.TrimSuffix(strings.Repeat("(?, ?),", len(pairs)), ",")
	args := make([]any, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, p.Origin, p.Destination)
	}

	rows, err := r.store.db.QueryContext(ctx,
		`SELECT origin_key, dest_key, distance_meters, duration_secs FROM distance_cache
		 WHERE (origin_key, dest_key) IN (VALUES `+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to query distance batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.DistanceCacheEntry
		if err := rows.Scan(&e.Origin, &e.Destination, &e.DistanceMeters, &e.DurationSecs); err != nil {
			return fmt.Errorf("failed to scan distance row: %w", err)
		}
		found[e.Pair()] = &e
	}
	return rows.Err()
}

func (r *distanceCacheRepository) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin distance write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO distance_cache (origin_key, dest_key, distance_meters, duration_secs)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (origin_key, dest_key) DO UPDATE SET
		   distance_meters = excluded.distance_meters,
		   duration_secs = excluded.duration_secs,
		   cached_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare distance write: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Origin, e.Destination, e.DistanceMeters, e.DurationSecs); err != nil {
			return fmt.Errorf("failed to write distance %s -> %s: %w", e.Origin, e.Destination, err)
		}
	}
	return tx.Commit()
}

func (r *distanceCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM distance_cache"); err != nil {
		return fmt.Errorf("failed to clear distance cache: %w", err)
	}
	return nil
}

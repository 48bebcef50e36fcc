package database

import (
	"context"

	"rider-router/internal/models"
)

// CacheStore is the interface for the provider response caches
type CacheStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Geocodes() GeocodeCacheRepository
	Distances() DistanceCacheRepository
}

// GeocodeCacheRepository handles geocode cache persistence.
// Get returns nil, nil on a miss.
type GeocodeCacheRepository interface {
	Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error)
	Set(ctx context.Context, entry *models.GeocodeCacheEntry) error
	Clear(ctx context.Context) error
}

// DistanceCacheRepository handles distance cache persistence
type DistanceCacheRepository interface {
	Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error)
	GetBatch(ctx context.Context, pairs []models.AddressPair) (map[models.AddressPair]*models.DistanceCacheEntry, error)
	SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error
	Clear(ctx context.Context) error
}

package testutil

import (
	"context"
	"sync"

	"rider-router/internal/database"
	"rider-router/internal/models"
)

// MockCacheStore is an in-memory database.CacheStore for tests
type MockCacheStore struct {
	geocodes  *MockGeocodeCache
	distances *MockDistanceCache
}

func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		geocodes:  NewMockGeocodeCache(),
		distances: NewMockDistanceCache(),
	}
}

func (s *MockCacheStore) Close() error                          { return nil }
func (s *MockCacheStore) HealthCheck(ctx context.Context) error { return nil }
func (s *MockCacheStore) Geocodes() database.GeocodeCacheRepository {
	return s.geocodes
}
func (s *MockCacheStore) Distances() database.DistanceCacheRepository {
	return s.distances
}

// MockGeocodeCache is a map-backed GeocodeCacheRepository
type MockGeocodeCache struct {
	mu      sync.Mutex
	entries map[string]models.GeocodeCacheEntry
}

func NewMockGeocodeCache() *MockGeocodeCache {
	return &MockGeocodeCache{entries: make(map[string]models.GeocodeCacheEntry)}
}

func (c *MockGeocodeCache) Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (c *MockGeocodeCache) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = *entry
	return nil
}

func (c *MockGeocodeCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]models.GeocodeCacheEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockGeocodeCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MockDistanceCache is a map-backed DistanceCacheRepository
type MockDistanceCache struct {
	mu      sync.Mutex
	entries map[models.AddressPair]models.DistanceCacheEntry
}

func NewMockDistanceCache() *MockDistanceCache {
	return &MockDistanceCache{entries: make(map[models.AddressPair]models.DistanceCacheEntry)}
}

func (c *MockDistanceCache) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[models.AddressPair{Origin: origin, Destination: dest}]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (c *MockDistanceCache) GetBatch(ctx context.Context, pairs []models.AddressPair) (map[models.AddressPair]*models.DistanceCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[models.AddressPair]*models.DistanceCacheEntry)
	for _, pair := range pairs {
		if entry, ok := c.entries[pair]; ok {
			e := entry
			result[pair] = &e
		}
	}
	return result, nil
}

func (c *MockDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		c.entries[entry.Pair()] = entry
	}
	return nil
}

func (c *MockDistanceCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[models.AddressPair]models.DistanceCacheEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockDistanceCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Package rediscache keeps geocode and distance lookups in Redis so several
// router instances can share provider results.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"rider-router/internal/database"
	"rider-router/internal/models"
)

const keyPrefix = "rider-router:"

// Store is a Redis-backed implementation of database.CacheStore
type Store struct {
	client *redis.Client
	ttl    time.Duration

	geocodes  *geocodeCache
	distances *distanceCache
}

// New connects to the Redis instance at url (redis://host:port/db)
func New(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", database.ErrCacheUnavailable, err)
	}

	log.Printf("Using Redis cache at %s ttl=%v", opts.Addr, ttl)
	return NewFromClient(client, ttl), nil
}

// NewFromClient wraps an existing client. A zero ttl keeps entries forever.
func NewFromClient(client *redis.Client, ttl time.Duration) *Store {
	s := &Store{client: client, ttl: ttl}
	s.geocodes = &geocodeCache{store: s}
	s.distances = &distanceCache{store: s}
	return s
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Geocodes() database.GeocodeCacheRepository   { return s.geocodes }
func (s *Store) Distances() database.DistanceCacheRepository { return s.distances }

func (s *Store) clearPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

type geocodeCache struct {
	store *Store
}

func geocodeKey(key string) string {
	return keyPrefix + "geo:" + key
}

func (c *geocodeCache) Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	data, err := c.store.client.Get(ctx, geocodeKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geocode cache entry: %w", err)
	}

	var entry models.GeocodeCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode geocode cache entry: %w", err)
	}
	return &entry, nil
}

func (c *geocodeCache) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode geocode cache entry: %w", err)
	}
	if err := c.store.client.Set(ctx, geocodeKey(entry.Key), data, c.store.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set geocode cache entry: %w", err)
	}
	return nil
}

func (c *geocodeCache) Clear(ctx context.Context) error {
	return c.store.clearPrefix(ctx, keyPrefix+"geo:")
}

type distanceCache struct {
	store *Store
}

func distanceKey(pair models.AddressPair) string {
	return keyPrefix + "dist:" + pair.Origin + "|" + pair.Destination
}

func (c *distanceCache) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	got, err := c.GetBatch(ctx, []models.AddressPair{{Origin: origin, Destination: dest}})
	if err != nil {
		return nil, err
	}
	return got[models.AddressPair{Origin: origin, Destination: dest}], nil
}

func (c *distanceCache) GetBatch(ctx context.Context, pairs []models.AddressPair) (map[models.AddressPair]*models.DistanceCacheEntry, error) {
	result := make(map[models.AddressPair]*models.DistanceCacheEntry)
	if len(pairs) == 0 {
		return result, nil
	}

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = distanceKey(p)
	}

	values, err := c.store.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get distance cache entries: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.DistanceCacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode distance cache entry: %w", err)
		}
		result[pairs[i]] = &entry
	}

	return result, nil
}

func (c *distanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := c.store.client.Pipeline()
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode distance cache entry: %w", err)
		}
		pipe.Set(ctx, distanceKey(entry.Pair()), data, c.store.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set distance cache entries: %w", err)
	}
	return nil
}

func (c *distanceCache) Clear(ctx context.Context) error {
	return c.store.clearPrefix(ctx, keyPrefix+"dist:")
}

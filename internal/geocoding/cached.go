package geocoding

import (
	"context"
	"log"

	"golang.org/x/sync/singleflight"

	"rider-router/internal/database"
	"rider-router/internal/models"
	"rider-router/internal/roster"
)

// cachedGeocoder fronts a Geocoder with a persistent cache. Concurrent lookups
// of the same normalized address share one provider call.
type cachedGeocoder struct {
	inner Geocoder
	cache database.GeocodeCacheRepository
	group singleflight.Group
}

// NewCachedGeocoder wraps inner with cache. Cache failures are logged and treated as misses.
func NewCachedGeocoder(inner Geocoder, cache database.GeocodeCacheRepository) Geocoder {
	return &cachedGeocoder{inner: inner, cache: cache}
}

func (c *cachedGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	key := roster.NormalizeAddress(address)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		cached, err := c.cache.Get(ctx, key)
		if err != nil {
			log.Printf("[ERROR] Geocode cache read failed: key=%s err=%v", key, err)
		}
		if cached != nil {
			return &GeocodingResult{Coords: cached.Coords, DisplayName: cached.DisplayName}, nil
		}

		result, err := c.inner.Geocode(ctx, address)
		if err != nil {
			return nil, err
		}

		if err := c.cache.Set(ctx, &models.GeocodeCacheEntry{
			Key:         key,
			Coords:      result.Coords,
			DisplayName: result.DisplayName,
		}); err != nil {
			log.Printf("[ERROR] Geocode cache write failed: key=%s err=%v", key, err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	result := *v.(*GeocodingResult)
	return &result, nil
}

// Search passes through to the wrapped geocoder when it supports searching
func (c *cachedGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error) {
	if s, ok := c.inner.(Searcher); ok {
		return s.Search(ctx, query, limit)
	}
	return []GeocodingResult{}, nil
}

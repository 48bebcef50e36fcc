package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rider-router/internal/models"
)

func setupTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestGeocodeRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Geocodes().Set(ctx, &models.GeocodeCacheEntry{
		Key:    "1 a st olathe ks 66061",
		Coords: models.Coordinates{Lat: 38.88, Lng: -94.81},
	}))

	entry, err := store.Geocodes().Get(ctx, "1 a st olathe ks 66061")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, -94.81, entry.Coords.Lng)

	missing, err := store.Geocodes().Get(ctx, "2 b st")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGeocodeEntriesExpire(t *testing.T) {
	store, mr := setupTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Geocodes().Set(ctx, &models.GeocodeCacheEntry{Key: "k"}))
	mr.FastForward(2 * time.Hour)

	entry, err := store.Geocodes().Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDistanceBatchAndClear(t *testing.T) {
	store, _ := setupTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Distances().SetBatch(ctx, []models.DistanceCacheEntry{
		{Origin: "a", Destination: "b", DistanceMeters: 100, DurationSecs: 10},
		{Origin: "b", Destination: "a", DistanceMeters: 120, DurationSecs: 12},
	}))
	require.NoError(t, store.Geocodes().Set(ctx, &models.GeocodeCacheEntry{Key: "a"}))

	got, err := store.Distances().GetBatch(ctx, []models.AddressPair{
		{Origin: "a", Destination: "b"},
		{Origin: "a", Destination: "c"},
		{Origin: "b", Destination: "a"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 120.0, got[models.AddressPair{Origin: "b", Destination: "a"}].DistanceMeters)

	require.NoError(t, store.Distances().Clear(ctx))

	entry, err := store.Distances().Get(ctx, "a", "b")
	require.NoError(t, err)
	assert.Nil(t, entry)

	geo, err := store.Geocodes().Get(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, geo, "clearing distances must not touch geocodes")
}

func TestHealthCheck(t *testing.T) {
	store, mr := setupTestStore(t, 0)

	assert.NoError(t, store.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, store.HealthCheck(context.Background()))
}

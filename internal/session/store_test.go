package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rider-router/internal/models"
)

func TestStoreCreateGetDelete(t *testing.T) {
	store := NewStore(nil, nil, Options{})

	s := store.Create()
	require.NotNil(t, s)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, models.RouteStateEmpty, s.State())
	assert.Same(t, s, store.Get(s.ID))
	assert.Nil(t, store.Get("missing"))

	assert.True(t, store.Delete(s.ID))
	assert.False(t, store.Delete(s.ID))
	assert.Nil(t, store.Get(s.ID))
}

func TestStoreSessionsGetDistinctIDs(t *testing.T) {
	store := NewStore(nil, nil, Options{InsertPolicy: InsertAppend})

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- store.Create().ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, 50, store.Len())
}

func TestStoreSessionsDoNotShareDepot(t *testing.T) {
	depot := &models.Stop{ID: "depot", RiderCount: 3}
	store := NewStore(nil, nil, Options{Depot: depot})

	a := store.Create()
	b := store.Create()

	assert.NotSame(t, a.opts.Depot, b.opts.Depot)
	assert.Equal(t, 0, a.opts.Depot.RiderCount)
	assert.Equal(t, 3, depot.RiderCount)
}

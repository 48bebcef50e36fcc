package distance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"rider-router/internal/database"
	"rider-router/internal/models"
	"rider-router/internal/roster"
)

// Metric selects which provider value becomes the matrix cost
type Metric string

const (
	MetricDistance Metric = "distance"
	MetricDuration Metric = "duration"
)

// BuilderConfig controls chunking and retry behaviour
type BuilderConfig struct {
	ChunkSize  int
	MaxRetries int
	BaseDelay  time.Duration
	Metric     Metric
}

// DefaultBuilderConfig matches the Distance Matrix API element limits
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		ChunkSize:  10,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Metric:     MetricDistance,
	}
}

// Builder assembles a full cost matrix from chunked provider requests
type Builder struct {
	gateway  Gateway
	cache    database.DistanceCacheRepository
	cfg      BuilderConfig
	requests atomic.Int64
}

// NewBuilder creates a matrix builder. cache may be nil.
func NewBuilder(gateway Gateway, cache database.DistanceCacheRepository, cfg BuilderConfig) *Builder {
	defaults := DefaultBuilderConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.Metric == "" {
		cfg.Metric = defaults.Metric
	}
	return &Builder{gateway: gateway, cache: cache, cfg: cfg}
}

// Requests returns the number of provider requests issued by the most recent build
func (b *Builder) Requests() int {
	return int(b.requests.Load())
}

// cacheKey scopes a normalized address to the provider that priced it
func cacheKey(provider, address string) string {
	return provider + "|" + roster.NormalizeAddress(address)
}

func (b *Builder) chunkSize() int {
	size := b.cfg.ChunkSize
	if limit := b.gateway.MaxBatchSize(); limit > 0 && limit < size {
		size = limit
	}
	return size
}

type span struct {
	start, end int
}

func chunks(n, size int) []span {
	var out []span
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		out = append(out, span{start: i, end: end})
	}
	return out
}

// Build returns the complete matrix for locations, or an error. A partial matrix is never returned.
func (b *Builder) Build(ctx context.Context, locations []models.Location) (*Matrix, error) {
	n := len(locations)
	matrix := NewMatrix(n)
	var requests int64
	defer func() { b.requests.Store(requests) }()

	if n < 2 {
		return matrix, nil
	}

	keys := make([]string, n)
	for i, loc := range locations {
		keys[i] = cacheKey(b.gateway.Name(), loc.Address)
	}

	size := b.chunkSize()
	parts := chunks(n, size)
	start := time.Now()
	log.Printf("[MATRIX] Build start: locations=%d chunk_size=%d chunk_pairs=%d metric=%s", n, size, len(parts)*len(parts), b.cfg.Metric)

	cached := 0
	for ri, rows := range parts {
		for ci, cols := range parts {
			if b.fillFromCache(ctx, matrix, keys, rows, cols) {
				cached++
				continue
			}

			block, attempts, err := b.fetchBlock(ctx, locations[rows.start:rows.end], locations[cols.start:cols.end])
			requests += int64(attempts)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				log.Printf("[ERROR] Matrix chunk failed: row=%d col=%d attempts=%d err=%v", ri, ci, attempts, err)
				return nil, &ErrMatrixBuildFailed{Row: ri, Col: ci, Attempts: attempts, Err: err}
			}

			if err := b.writeBlock(ctx, matrix, locations, keys, rows, cols, block); err != nil {
				var unreachable *ErrUnreachable
				if errors.As(err, &unreachable) {
					return nil, err
				}
				return nil, &ErrMatrixBuildFailed{Row: ri, Col: ci, Attempts: attempts, Err: err}
			}
		}
	}

	if !matrix.Complete() {
		return nil, fmt.Errorf("distance matrix incomplete after build")
	}

	log.Printf("[MATRIX] Build done: locations=%d requests=%d cached_pairs=%d duration_ms=%d", n, requests, cached, time.Since(start).Milliseconds())
	return matrix, nil
}

func (b *Builder) fillFromCache(ctx context.Context, matrix *Matrix, keys []string, rows, cols span) bool {
	if b.cache == nil {
		return false
	}

	var pairs []models.AddressPair
	for i := rows.start; i < rows.end; i++ {
		for j := cols.start; j < cols.end; j++ {
			if i != j {
				pairs = append(pairs, models.AddressPair{Origin: keys[i], Destination: keys[j]})
			}
		}
	}
	if len(pairs) == 0 {
		return true
	}

	hits, err := b.cache.GetBatch(ctx, pairs)
	if err != nil {
		log.Printf("[ERROR] Distance cache read failed: err=%v", err)
		return false
	}
	if len(hits) < len(pairs) {
		return false
	}
	for _, p := range pairs {
		if hits[p] == nil {
			return false
		}
	}

	for i := rows.start; i < rows.end; i++ {
		for j := cols.start; j < cols.end; j++ {
			if i == j {
				continue
			}
			entry := hits[models.AddressPair{Origin: keys[i], Destination: keys[j]}]
			matrix.Set(i, j, b.cost(entry.DistanceMeters, entry.DurationSecs))
		}
	}
	return true
}

// fetchBlock issues one chunk-pair request, retrying transient failures with a linear backoff
func (b *Builder) fetchBlock(ctx context.Context, origins, destinations []models.Location) ([][]Element, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= b.cfg.MaxRetries; attempt++ {
		attempts = attempt
		block, err := b.gateway.BatchDistances(ctx, origins, destinations)
		if err == nil {
			return block, attempts, nil
		}
		lastErr = err

		var failed *ErrDistanceCalculationFailed
		if errors.As(err, &failed) && !failed.Retryable {
			break
		}
		if attempt == b.cfg.MaxRetries {
			break
		}

		delay := time.Duration(attempt) * b.cfg.BaseDelay
		log.Printf("[MATRIX] Retrying chunk: attempt=%d delay_ms=%d err=%v", attempt, delay.Milliseconds(), err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempts, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, attempts, lastErr
}

func (b *Builder) writeBlock(ctx context.Context, matrix *Matrix, locations []models.Location, keys []string, rows, cols span, block [][]Element) error {
	height, width := rows.end-rows.start, cols.end-cols.start
	if len(block) != height {
		return fmt.Errorf("provider returned %d rows, expected %d", len(block), height)
	}

	var fresh []models.DistanceCacheEntry
	for bi, row := range block {
		if len(row) != width {
			return fmt.Errorf("provider returned %d columns in row %d, expected %d", len(row), bi, width)
		}
		i := rows.start + bi
		for bj, el := range row {
			j := cols.start + bj
			if i == j {
				continue
			}
			if el.Status != StatusOK {
				log.Printf("[ERROR] Unreachable pair: origin=%s dest=%s", locations[i].Address, locations[j].Address)
				return &ErrUnreachable{Origin: locations[i].Address, Destination: locations[j].Address}
			}
			matrix.Set(i, j, b.cost(el.Meters, el.Seconds))
			fresh = append(fresh, models.DistanceCacheEntry{
				Origin:         keys[i],
				Destination:    keys[j],
				DistanceMeters: el.Meters,
				DurationSecs:   el.Seconds,
			})
		}
	}

	if b.cache != nil && len(fresh) > 0 {
		if err := b.cache.SetBatch(ctx, fresh); err != nil {
			log.Printf("[ERROR] Distance cache write failed: entries=%d err=%v", len(fresh), err)
		}
	}
	return nil
}

func (b *Builder) cost(meters, seconds float64) float64 {
	if b.cfg.Metric == MetricDuration {
		return seconds
	}
	return meters
}

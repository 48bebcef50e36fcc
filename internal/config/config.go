package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"rider-router/internal/models"
	"rider-router/internal/roster"
)

// Provider and backend names accepted in the environment
const (
	GeocoderNominatim = "nominatim"
	GeocoderGoogle    = "google"

	DistanceGoogle    = "google"
	DistanceOSRM      = "osrm"
	DistanceHaversine = "haversine"

	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the runtime configuration of the router
type Config struct {
	Addr        string
	OpenBrowser bool

	Geocoder         string
	DistanceProvider string
	GoogleAPIKey     string
	OSRMBaseURL      string
	NominatimBaseURL string
	GeocodeDelay     time.Duration

	ChunkSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	Metric         string
	OriginAddress  string
	InsertPolicy   string
	ColumnsFile    string

	CacheBackend string
	CachePath    string
	RedisURL     string
	CacheTTL     time.Duration

	// Resolved from OriginAddress and ColumnsFile
	Origin  *models.Address
	Columns roster.ColumnMap
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only
func FromEnv() (*Config, error) {
	apiKey := getEnv("GOOGLE_MAPS_API_KEY", "")

	defaultDistance := DistanceOSRM
	defaultGeocoder := GeocoderNominatim
	if apiKey != "" {
		defaultDistance = DistanceGoogle
		defaultGeocoder = GeocoderGoogle
	}

	cfg := &Config{
		Addr:             getEnv("SERVER_ADDR", "127.0.0.1:8080"),
		Geocoder:         strings.ToLower(getEnv("GEOCODER", defaultGeocoder)),
		DistanceProvider: strings.ToLower(getEnv("DISTANCE_PROVIDER", defaultDistance)),
		GoogleAPIKey:     apiKey,
		OSRMBaseURL:      getEnv("OSRM_BASE_URL", ""),
		NominatimBaseURL: getEnv("NOMINATIM_BASE_URL", ""),
		Metric:           strings.ToLower(getEnv("MATRIX_METRIC", "distance")),
		OriginAddress:    getEnv("ORIGIN_ADDRESS", ""),
		InsertPolicy:     strings.ToLower(getEnv("INSERT_POLICY", "reoptimize")),
		ColumnsFile:      getEnv("COLUMNS_FILE", ""),
		CacheBackend:     strings.ToLower(getEnv("CACHE_BACKEND", CacheSQLite)),
		CachePath:        getEnv("CACHE_PATH", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
	}

	var err error
	if cfg.ChunkSize, err = getInt("MATRIX_CHUNK_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("MATRIX_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = getDuration("MATRIX_RETRY_BASE", time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeDelay, err = getDuration("GEOCODE_DELAY", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OpenBrowser, err = getBool("OPEN_BROWSER", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.OriginAddress != "" {
		addr, err := roster.ParseAddress(cfg.OriginAddress)
		if err != nil {
			return nil, fmt.Errorf("ORIGIN_ADDRESS: %w", err)
		}
		cfg.Origin = &addr
	}

	cfg.Columns = roster.DefaultColumns()
	if cfg.ColumnsFile != "" {
		if cfg.Columns, err = roster.LoadColumns(cfg.ColumnsFile); err != nil {
			return nil, fmt.Errorf("COLUMNS_FILE: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that enumerated settings hold known values
func (c *Config) Validate() error {
	if err := oneOf("GEOCODER", c.Geocoder, GeocoderNominatim, GeocoderGoogle); err != nil {
		return err
	}
	if err := oneOf("DISTANCE_PROVIDER", c.DistanceProvider, DistanceGoogle, DistanceOSRM, DistanceHaversine); err != nil {
		return err
	}
	if err := oneOf("MATRIX_METRIC", c.Metric, "distance", "duration"); err != nil {
		return err
	}
	if err := oneOf("INSERT_POLICY", c.InsertPolicy, "reoptimize", "append"); err != nil {
		return err
	}
	if err := oneOf("CACHE_BACKEND", c.CacheBackend, CacheSQLite, CacheRedis, CacheNone); err != nil {
		return err
	}
	if (c.Geocoder == GeocoderGoogle || c.DistanceProvider == DistanceGoogle) && c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google provider")
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("MATRIX_CHUNK_SIZE must be at least 1, got %d", c.ChunkSize)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MATRIX_MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported value %q (expected one of %s)", key, value, strings.Join(allowed, ", "))
}

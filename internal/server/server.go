package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"

	"rider-router/internal/config"
	"rider-router/internal/database"
	"rider-router/internal/distance"
	"rider-router/internal/geocoding"
	"rider-router/internal/handlers"
	"rider-router/internal/models"
	"rider-router/internal/rediscache"
	"rider-router/internal/session"
	"rider-router/internal/sqlite"
	"rider-router/web"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	cache      database.CacheStore
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(cfg *config.Config) (*Server, error) {
	cache, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	geocoder := newGeocoder(cfg)
	var distanceCache database.DistanceCacheRepository
	if cache != nil {
		geocoder = geocoding.NewCachedGeocoder(geocoder, cache.Geocodes())
		distanceCache = cache.Distances()
	}

	builder := distance.NewBuilder(newGateway(cfg), distanceCache, distance.BuilderConfig{
		ChunkSize:  cfg.ChunkSize,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		Metric:     distance.Metric(cfg.Metric),
	})
	validator := geocoding.NewValidator(geocoder, cfg.GeocodeDelay)

	opts := session.Options{InsertPolicy: session.InsertPolicy(cfg.InsertPolicy)}
	if cfg.Origin != nil {
		opts.Depot = &models.Stop{ID: "origin", Name: "Origin", Address: *cfg.Origin}
	}

	handler := &handlers.Handler{
		Sessions: session.NewStore(validator, builder, opts),
		Geocoder: geocoder,
		Cache:    cache,
		Columns:  cfg.Columns,
	}

	log.Printf("Configured providers: geocoder=%s distance=%s metric=%s cache=%s insert_policy=%s",
		cfg.Geocoder, cfg.DistanceProvider, cfg.Metric, cfg.CacheBackend, cfg.InsertPolicy)

	srv, err := newServer(cfg.Addr, handler)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}
	srv.cache = cache
	return srv, nil
}

func newServer(addr string, handler *handlers.Handler) (*Server, error) {
	mux, err := setupRoutes(handler, web.Static)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(allowLocalOrigins(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // matrix builds with retries can run long
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		addr:       addr,
	}, nil
}

func openCache(cfg *config.Config) (database.CacheStore, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		log.Printf("Caching disabled")
		return nil, nil
	case config.CacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := rediscache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		return store, nil
	default:
		path := cfg.CachePath
		if path == "" {
			var err error
			if path, err = database.DefaultCacheDBPath(); err != nil {
				return nil, fmt.Errorf("failed to resolve cache path: %w", err)
			}
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite cache: %w", err)
		}
		return store, nil
	}
}

func newGeocoder(cfg *config.Config) geocoding.Geocoder {
	if cfg.Geocoder == config.GeocoderGoogle {
		return geocoding.NewGoogleGeocoder(cfg.GoogleAPIKey)
	}
	return geocoding.NewNominatimGeocoder(cfg.NominatimBaseURL)
}

func newGateway(cfg *config.Config) distance.Gateway {
	switch cfg.DistanceProvider {
	case config.DistanceGoogle:
		return distance.NewGoogleGateway(cfg.GoogleAPIKey)
	case config.DistanceHaversine:
		return distance.NewHaversineGateway()
	default:
		return distance.NewOSRMGateway(cfg.OSRMBaseURL, cfg.ChunkSize)
	}
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler, staticFS fs.FS) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	staticSubFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticSubFS)))

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.HandleHealthCheck(w, r)
	})

	mux.HandleFunc("/api/v1/open-url", handleOpenURL)

	mux.HandleFunc("/api/v1/address-search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.HandleAddressSearch(w, r)
	})

	mux.HandleFunc("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.HandleCreateSession(w, r)
	})

	mux.HandleFunc("/api/v1/sessions/", func(w http.ResponseWriter, r *http.Request) {
		id, action, arg := handlers.SplitSessionPath(r.URL.Path)
		if id == "" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		switch action {
		case "":
			switch r.Method {
			case http.MethodGet:
				handler.HandleGetSession(w, r)
			case http.MethodDelete:
				handler.HandleDeleteSession(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		case "stops":
			switch {
			case arg == "" && r.Method == http.MethodPost:
				handler.HandleInsertStop(w, r)
			case arg != "" && r.Method == http.MethodDelete:
				handler.HandleDeleteStop(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		case "export":
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			handler.HandleExport(w, r)
		default:
			post, ok := sessionActions(handler)[action]
			if !ok || arg != "" {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			post(w, r)
		}
	})

	return mux, nil
}

// sessionActions maps POST-only session sub-resources to their handlers
func sessionActions(handler *handlers.Handler) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"roster":     handler.HandleReloadSession,
		"decision":   handler.HandleDecision,
		"move":       handler.HandleMoveStop,
		"riders":     handler.HandleAdjustRiders,
		"filter":     handler.HandleFilter,
		"reoptimize": handler.HandleReoptimize,
		"reset":      handler.HandleReset,
	}
}

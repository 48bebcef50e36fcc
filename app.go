package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"rider-router/internal/config"
	"rider-router/internal/server"
)

// App holds the desktop shell state. The UI itself is served by the embedded HTTP server.
type App struct {
	ctx    context.Context
	server *server.Server
	url    string
}

// NewApp loads configuration and starts the HTTP server on a random local port
func NewApp() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	// the desktop shell always binds a private loopback port
	cfg.Addr = "127.0.0.1:0"

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	addr, err := srv.Start()
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	app := &App{server: srv, url: fmt.Sprintf("http://%s", addr)}
	log.Printf("Internal HTTP server running at %s", app.url)
	return app
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	go func() {
		runtime.WindowExecJS(ctx, fmt.Sprintf(`window.location.href = "%s"`, a.url))
	}()
}

// ServerURL exposes the internal server address to the frontend
func (a *App) ServerURL() string {
	return a.url
}

func (a *App) shutdown(ctx context.Context) {
	if a.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
}

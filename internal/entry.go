// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/api"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/codec"
	"github.com/starford/sowilo/internal/gallery"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/mcpserver"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	// Initialize engine components.
	ctrl, query, store, closeCatalog, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	// Initial full scan.
	if err := ctrl.Scan(); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(ctrl, query, store, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Optional filesystem watcher feeding resync.
	if cfg.Resync.Watch {
		root := store.Root()
		g.Go(func() error {
			if err := watcher.Watch(gCtx, root, ctrl, logger); err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Periodic resync ticker.
	if interval := cfg.Resync.Interval(); interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					if err := ctrl.Resync(); err != nil {
						logger.Warn("periodic resync failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the stdio MCP server instead of the HTTP gallery.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}
	ctrl, query, _, closeCatalog, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	if err := ctrl.Scan(); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(ctrl, query).ServeStdio()
}

// buildEngine wires storage, codec, index, catalog, controller, and query.
func buildEngine(cfg *Config, logger *slog.Logger) (*gallery.Controller, *gallery.Query, *storage.FS, func(), error) {
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	adapter := codec.NewAdapter(store)
	ix := index.New(store, adapter, logger)

	var cat *catalog.DB
	closeCatalog := func() {}
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("init catalog: %w", err)
		}
		closeCatalog = func() { _ = cat.Close() }
	}

	ctrl := gallery.NewController(ix, adapter, store, cat, logger)
	query := gallery.NewQuery(ix, cat)
	return ctrl, query, store, closeCatalog, nil
}

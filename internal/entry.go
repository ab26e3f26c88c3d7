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

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/engine"
	"github.com/starford/othala/internal/generator"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/storage"
)

// Run starts the HTTP server with the given options.
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
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	provider := app.provider
	if provider == nil {
		var err error
		provider, err = openProvider(cfg, logger)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	}
	defer provider.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Open the engine; committed mutations fan out to SSE clients.
	store, err := engine.Open(provider, engine.Options{
		HistoryLimit: cfg.Engine.HistoryLimit,
		SaveDelay:    cfg.Engine.SaveDelay(),
		Logger:       logger,
		Notify: func(ev engine.Event) {
			broker.PublishEngineEvent(ev.Type, ev.Data)
		},
	})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}

	runner := generator.New(store, logger)

	// Build API service and router.
	svc := api.NewService(store, runner)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// The fs driver is the only one another process can write to, so it is
	// the only one that gets an external change watcher.
	if fsProv, ok := provider.(*storage.FS); ok {
		g.Go(func() error {
			return storage.Watch(gCtx, fsProv, logger, store.ExternalReload)
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

		broker.Close()

		// Close flushes pending debounced saves before the provider goes away.
		store.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tool surface over stdio. Logs go to stderr so the
// protocol stream on stdout stays clean.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	provider := app.provider
	if provider == nil {
		var err error
		provider, err = openProvider(cfg, logger)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	}
	defer provider.Close()

	store, err := engine.Open(provider, engine.Options{
		HistoryLimit: cfg.Engine.HistoryLimit,
		SaveDelay:    cfg.Engine.SaveDelay(),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer store.Close()

	logger.Info("MCP server starting on stdio",
		slog.String("storage_driver", cfg.Storage.Driver))

	return mcpserver.New(store).ServeStdio()
}

// openProvider builds the storage provider selected by the configuration.
func openProvider(cfg *Config, logger *slog.Logger) (storage.Provider, error) {
	switch cfg.Storage.Driver {
	case StorageDriverFS:
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return storage.NewFS(cfg.Storage.Path)
	case StorageDriverBadger:
		return storage.NewBadger(cfg.Storage.Path, logger)
	case StorageDriverSQLite:
		return storage.NewSQLite(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

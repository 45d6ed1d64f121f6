package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/ivmelnik/todosync/internal/config"
	"github.com/ivmelnik/todosync/internal/server/handlers"
	"github.com/ivmelnik/todosync/internal/server/middleware"
	"github.com/ivmelnik/todosync/internal/server/storage/sqlite"
	syncsvc "github.com/ivmelnik/todosync/internal/server/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to TOML config file")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath, *listenAddr, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "todosync server failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listenAddr, dbPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Флаги перекрывают файл
	if listenAddr != "" {
		cfg.Server.ListenAddress = listenAddr
	}
	if dbPath != "" {
		cfg.Storage.SQLitePath = dbPath
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище конструируется здесь и передается вниз как зависимость
	store, err := sqlite.New(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", slog.Any("error", cerr))
		}
	}()

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.JWTSecret),
		AccessTokenTTL: cfg.AccessTokenTTL(),
	}

	syncService := syncsvc.NewService(logger, store)
	syncHandler := handlers.NewSyncHandler(logger, syncService)
	healthHandler := handlers.NewHealthHandler(logger, store, Version)

	r := chi.NewRouter()
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimitWindow(), logger))

	r.Get("/api/v1/health", healthHandler.Health)

	r.Route("/api/v1/sync", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(logger, jwtConfig))
		r.Post("/push", syncHandler.HandlePush)
		r.Post("/pull", syncHandler.HandlePull)
	})

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: r,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("todosync server listening",
			slog.String("addr", cfg.Server.ListenAddress),
			slog.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// newLogger собирает slog.Logger по настройкам из конфига
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func printVersion() {
	fmt.Printf("TodoSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

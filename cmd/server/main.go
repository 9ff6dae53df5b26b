package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crateport/crateport/internal/api"
	"github.com/crateport/crateport/internal/auth"
	"github.com/crateport/crateport/internal/config"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/database"
	"github.com/crateport/crateport/internal/download"
	"github.com/crateport/crateport/internal/github"
	"github.com/crateport/crateport/internal/index"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/publish"
	"github.com/crateport/crateport/internal/storage"
	"github.com/crateport/crateport/internal/user"
	"github.com/crateport/crateport/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	crates := crate.NewRepository(db.Pool())
	versions := version.NewRepository(db.Pool())
	owners := owner.NewRepository(db.Pool())
	users := user.NewRepository(db.Pool())
	downloads := download.NewRepository(db.Pool())

	authService := auth.NewService(users, cfg.BcryptCost)
	gh := github.New(cfg.GithubClientID, cfg.GithubClientSecret, storage.NewHTTPClient(30*time.Second))

	store := buildStore(cfg)
	idx := index.New(cfg.IndexPath, cfg.IndexBranch)

	publishService := publish.NewService(publish.NewMetadataStore(db), versions, store, idx, gh)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		Version:       cfg.Version,
		MaxUploadSize: cfg.MaxUploadSize,
		Crates:        crates,
		Versions:      versions,
		Owners:        owners,
		Users:         users,
		Downloads:     downloads,
		Auth:          authService,
		Github:        gh,
		Publish:       publishService,
		Store:         store,
		IndexWtr:      idx,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting registry server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func buildStore(cfg *config.Config) storage.Store {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, nil)
	}
	return storage.NewLocalStore(cfg.StorageDir, "")
}

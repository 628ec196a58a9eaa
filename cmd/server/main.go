package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/stwalsh4118/vitrine/internal/config"
	"github.com/stwalsh4118/vitrine/internal/db"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/probecache"
	"github.com/stwalsh4118/vitrine/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	logger.Log.Info().Msg("Vitrine playback scheduler starting")

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create database directory")
		}
	}

	database, err := db.Open(cfg.Database.Path, db.Options{
		EnableWAL:      cfg.Database.EnableWAL,
		ConnectTimeout: cfg.Database.ConnectionTimeout,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to get SQL database handle")
	}
	if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	var cache *probecache.Cache
	if cfg.Cache.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cache, err = probecache.Connect(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		cancel()
		if err != nil {
			// Probing still works without the cache
			logger.Log.Warn().
				Err(err).
				Str("redis_addr", cfg.Cache.RedisAddr).
				Msg("Probe cache unavailable, continuing without it")
			cache = nil
		}
	}

	srv := server.New(cfg, database, cache)

	done := make(chan struct{})
	go handleShutdown(srv, done)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatal().Err(err).Msg("Server error")
	}

	<-done
}

func handleShutdown(srv *server.Server, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

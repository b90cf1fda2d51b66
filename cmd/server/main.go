// Package main runs the token scanner daemon: the periodic analysis loop plus
// the HTTP API over the shared history tracker.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/token-scanner/internal/api"
	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/history"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/market"
	"github.com/token-scanner/internal/retry"
	"github.com/token-scanner/internal/rotation"
	"github.com/token-scanner/internal/storage"
	"github.com/token-scanner/internal/strategy"
	"github.com/token-scanner/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	ctx := logging.WithLogger(context.Background(), logger)

	logger.Info("Token scanner starting")

	cls := classifier.New(cfg.Stablecoin)
	client := market.NewClient(cfg.Market, cls)
	rotationCache := rotation.NewCache(cfg.Rotation)
	tracker := history.NewTracker(cfg.History)

	// Persistence layers are optional: a missing backend degrades to
	// in-memory operation rather than refusing to start. Connections are
	// retried briefly to ride out backends that come up after the process.
	connectRetry := &retry.Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	var rotationStore rotation.Store
	var redisCache *storage.RedisCache
	err = retry.Do(ctx, connectRetry, func(ctx context.Context, attempt int) error {
		var connErr error
		redisCache, connErr = storage.NewRedisCache(&cfg.Database.Redis)
		return connErr
	})
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, rotation state will not survive restarts")
	} else {
		defer redisCache.Close()
		rotationStore = storage.NewRedisRotationStore(redisCache)
		if err := rotationCache.Restore(ctx, rotationStore); err != nil {
			logger.WithError(err).Warn("Failed to restore rotation state")
		}
	}

	var postgres *storage.PostgresDB
	err = retry.Do(ctx, connectRetry, func(ctx context.Context, attempt int) error {
		var connErr error
		postgres, connErr = storage.NewPostgresDB(&cfg.Database.Postgres)
		return connErr
	})
	if err != nil {
		logger.WithError(err).Warn("Postgres unavailable, history records will not survive restarts")
	} else {
		defer postgres.Close()
		recordStore := storage.NewTokenRecordRepository(postgres)
		tracker.SetStore(recordStore)
		if records, err := recordStore.LoadAll(ctx); err != nil {
			logger.WithError(err).Warn("Failed to load persisted history records")
		} else {
			tracker.Restore(records)
			logger.WithField("records", len(records)).Info("Restored history records")
		}
	}

	var clickhouseDB *storage.ClickHouseDB
	err = retry.Do(ctx, connectRetry, func(ctx context.Context, attempt int) error {
		var connErr error
		clickhouseDB, connErr = storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		return connErr
	})
	if err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, observations will not be archived")
	} else {
		defer clickhouseDB.Close()
		tracker.SetArchive(storage.NewObservationRepository(clickhouseDB))
	}

	volumeStrategy := strategy.NewVolumeStrategy(client, cls, rotationCache, cfg.Scoring, cfg.Market.UniverseLimit)
	trendStrategy := strategy.NewTrendStrategy(client, cls, rotationCache, cfg.Scoring, cfg.Market.UniverseLimit)
	monitor := strategy.NewMonitor(volumeStrategy, trendStrategy, tracker)

	scanWorker := worker.NewScanWorker(monitor, cfg.Scan.Interval)
	if err := scanWorker.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start scan worker")
	}

	server := api.NewServer(cfg.Server, monitor, scanWorker, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}
	if err := scanWorker.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Scan worker stop failed")
	}
	if rotationStore != nil {
		if err := rotationCache.Persist(shutdownCtx, rotationStore); err != nil {
			logger.WithError(err).Error("Failed to persist rotation state")
		}
	}

	logger.Info("Token scanner stopped")
}

// Package main runs a single analysis cycle and prints the result as JSON.
// Useful for ad-hoc runs and for inspecting what the daemon would surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/history"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/market"
	"github.com/token-scanner/internal/rotation"
	"github.com/token-scanner/internal/storage"
	"github.com/token-scanner/internal/strategy"
)

func main() {
	bypassRotation := flag.Bool("bypass-rotation", false, "ignore the rotation window for this run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *bypassRotation {
		cfg.Rotation.Bypass = true
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	ctx := logging.WithLogger(context.Background(), logger)

	cls := classifier.New(cfg.Stablecoin)
	client := market.NewClient(cfg.Market, cls)
	rotationCache := rotation.NewCache(cfg.Rotation)
	tracker := history.NewTracker(cfg.History)

	// Shared rotation state keeps one-shot runs consistent with the daemon.
	redisCache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, running with empty rotation state")
	} else {
		defer redisCache.Close()
		store := storage.NewRedisRotationStore(redisCache)
		if err := rotationCache.Restore(ctx, store); err != nil {
			logger.WithError(err).Warn("Failed to restore rotation state")
		}
		defer func() {
			if err := rotationCache.Persist(ctx, store); err != nil {
				logger.WithError(err).Error("Failed to persist rotation state")
			}
		}()
	}

	volumeStrategy := strategy.NewVolumeStrategy(client, cls, rotationCache, cfg.Scoring, cfg.Market.UniverseLimit)
	trendStrategy := strategy.NewTrendStrategy(client, cls, rotationCache, cfg.Scoring, cfg.Market.UniverseLimit)
	monitor := strategy.NewMonitor(volumeStrategy, trendStrategy, tracker)

	result := monitor.RunAnalysis(ctx)

	// The full universes are noise on stdout; print only what was surfaced.
	result.Volume.Universe = nil
	result.Trend.Universe = nil

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.WithError(err).Fatal("Failed to encode result")
	}
}

// Package main exports the persisted token history as a JSON document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/history"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/storage"
)

func main() {
	out := flag.String("out", "token_history_export.json", "output file path")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	ctx := logging.WithLogger(context.Background(), logger)

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	recordStore := storage.NewTokenRecordRepository(postgres)
	records, err := recordStore.LoadAll(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load history records")
	}

	tracker := history.NewTracker(cfg.History)
	tracker.Restore(records)

	doc := tracker.Export()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logger.WithError(err).Fatal("Failed to encode export")
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		logger.WithError(err).Fatal("Export failed")
	}

	logger.WithFields(map[string]interface{}{
		"records": len(records),
		"path":    *out,
	}).Info("Export complete")
}

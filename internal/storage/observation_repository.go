package storage

import (
	"context"

	scanerrors "github.com/token-scanner/internal/errors"
	"github.com/token-scanner/internal/history"
)

// ObservationRepository archives raw token observations in ClickHouse for
// offline analysis. Implements history.ObservationArchive.
type ObservationRepository struct {
	db *ClickHouseDB
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *ClickHouseDB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Append writes one observation row. The table is append-only.
func (r *ObservationRepository) Append(ctx context.Context, symbol string, obs history.Observation) error {
	query := `
		INSERT INTO token_observations (symbol, price, volume_24h, market_cap, observed_at)
		VALUES (?, ?, ?, ?, ?)`

	if err := r.db.Exec(ctx, query,
		symbol, obs.Price, obs.Volume24h, obs.MarketCap, obs.ObservedAt,
	); err != nil {
		return scanerrors.NewDatabaseError("append observation", err)
	}
	return nil
}

package storage

import (
	"context"

	scanerrors "github.com/token-scanner/internal/errors"
	"github.com/token-scanner/internal/history"
)

// TokenRecordRepository persists history records in Postgres. Implements
// history.RecordStore as a write-through sink; the in-memory tracker remains
// the authority.
type TokenRecordRepository struct {
	db *PostgresDB
}

// NewTokenRecordRepository creates a new token record repository
func NewTokenRecordRepository(db *PostgresDB) *TokenRecordRepository {
	return &TokenRecordRepository{db: db}
}

// Upsert inserts or updates the record keyed by symbol.
func (r *TokenRecordRepository) Upsert(ctx context.Context, record *history.Record) error {
	query := `
		INSERT INTO token_records (
			symbol,
			first_mention_price, first_mention_date,
			first_mention_volume, first_mention_market_cap, first_mention_ratio_pct,
			current_price, current_volume, current_market_cap,
			max_gain_pct_24h, max_gain_pct_48h, max_gain_pct_7d,
			peak_at, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol) DO UPDATE SET
			current_price = EXCLUDED.current_price,
			current_volume = EXCLUDED.current_volume,
			current_market_cap = EXCLUDED.current_market_cap,
			max_gain_pct_24h = GREATEST(token_records.max_gain_pct_24h, EXCLUDED.max_gain_pct_24h),
			max_gain_pct_48h = GREATEST(token_records.max_gain_pct_48h, EXCLUDED.max_gain_pct_48h),
			max_gain_pct_7d = GREATEST(token_records.max_gain_pct_7d, EXCLUDED.max_gain_pct_7d),
			peak_at = COALESCE(EXCLUDED.peak_at, token_records.peak_at),
			last_updated = EXCLUDED.last_updated`

	_, err := r.db.Pool().Exec(ctx, query,
		record.Symbol,
		record.FirstMentionPrice, record.FirstMentionDate,
		record.FirstMentionVolume, record.FirstMentionMarketCap, record.FirstMentionRatioPct,
		record.CurrentPrice, record.CurrentVolume, record.CurrentMarketCap,
		record.MaxGainPercent24h, record.MaxGainPercent48h, record.MaxGainPercent7d,
		record.PeakAt, record.LastUpdated,
	)
	if err != nil {
		return scanerrors.NewDatabaseError("upsert token record", err)
	}
	return nil
}

// LoadAll reads every persisted record, used to seed the tracker at startup.
// Observations are not persisted relationally; restored records start with an
// empty observation window.
func (r *TokenRecordRepository) LoadAll(ctx context.Context) ([]*history.Record, error) {
	query := `
		SELECT
			symbol,
			first_mention_price, first_mention_date,
			first_mention_volume, first_mention_market_cap, first_mention_ratio_pct,
			current_price, current_volume, current_market_cap,
			max_gain_pct_24h, max_gain_pct_48h, max_gain_pct_7d,
			peak_at, last_updated
		FROM token_records`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, scanerrors.NewDatabaseError("load token records", err)
	}
	defer rows.Close()

	var records []*history.Record
	for rows.Next() {
		record := &history.Record{}
		if err := rows.Scan(
			&record.Symbol,
			&record.FirstMentionPrice, &record.FirstMentionDate,
			&record.FirstMentionVolume, &record.FirstMentionMarketCap, &record.FirstMentionRatioPct,
			&record.CurrentPrice, &record.CurrentVolume, &record.CurrentMarketCap,
			&record.MaxGainPercent24h, &record.MaxGainPercent48h, &record.MaxGainPercent7d,
			&record.PeakAt, &record.LastUpdated,
		); err != nil {
			return nil, scanerrors.NewDatabaseError("scan token record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, scanerrors.NewDatabaseError("iterate token records", err)
	}
	return records, nil
}

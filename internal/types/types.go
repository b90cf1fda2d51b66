// Package types provides common type definitions for the token signal scanner.
package types

import "time"

// SortKey represents an upstream sort field for universe queries
type SortKey string

const (
	// SortVolume24h sorts the universe by 24-hour trading volume
	SortVolume24h SortKey = "volume24h"
	// SortPriceChange24h sorts the universe by 24-hour price change
	SortPriceChange24h SortKey = "percentChange.h24"
)

// SortDirection represents the sort order for universe queries
type SortDirection string

const (
	// SortDesc sorts descending
	SortDesc SortDirection = "DESC"
	// SortAsc sorts ascending
	SortAsc SortDirection = "ASC"
)

// Classification represents a signal category assigned to a scored token
type Classification string

const (
	// ClassificationNone means the token did not qualify for any signal
	ClassificationNone Classification = "none"
	// ClassificationSpike means the token ranks highly by volume score in its batch
	ClassificationSpike Classification = "spike"
	// ClassificationAnomaly means the token's volume is unusually large relative to its market cap
	ClassificationAnomaly Classification = "anomaly"
	// ClassificationTrendMover means the token moved sharply relative to its peers
	ClassificationTrendMover Classification = "trend_mover"
)

// TokenSnapshot is one observation of a token at a point in time.
// Symbol is treated as the primary key within this system.
type TokenSnapshot struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name,omitempty"`
	Price          float64   `json:"price"`
	Volume24h      float64   `json:"volume24h"`
	MarketCap      float64   `json:"marketCap"`
	PriceChange24h float64   `json:"priceChange24h"`
	ObservedAt     time.Time `json:"observedAt"`
}

// VolumeToMarketCapRatio returns 24h volume over market cap as a percentage.
// Returns 0 for a non-positive market cap.
func (s TokenSnapshot) VolumeToMarketCapRatio() float64 {
	if s.MarketCap <= 0 {
		return 0
	}
	return s.Volume24h / s.MarketCap * 100
}

// ScoredToken is a TokenSnapshot plus derived scoring fields.
// Instances are created fresh on every scoring pass and never mutated;
// the next pass supersedes them with new values.
type ScoredToken struct {
	TokenSnapshot

	ActivityScore        float64          `json:"activityScore"`
	VolumeScore          float64          `json:"volumeScore"`
	TrendScore           float64          `json:"trendScore"`
	VolumeToMarketCapPct float64          `json:"volumeToMarketCapRatio"`
	Classifications      []Classification `json:"classifications"`
}

// Is reports whether the token carries the given classification.
func (t ScoredToken) Is(c Classification) bool {
	for _, have := range t.Classifications {
		if have == c {
			return true
		}
	}
	return false
}

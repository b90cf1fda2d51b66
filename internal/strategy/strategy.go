// Package strategy contains the coordinators that turn raw market universes
// into surfaced signals: the volume strategy (spikes and anomalies), the trend
// strategy (large movers with a market direction call), and the monitor that
// composes both over one shared history tracker.
package strategy

import (
	"context"

	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/types"
)

// MarketClient is the upstream universe fetch the strategies depend on.
type MarketClient interface {
	FetchUniverse(ctx context.Context, sortKey types.SortKey, direction types.SortDirection, limit int) ([]types.TokenSnapshot, error)
}

// Market direction calls made by the trend strategy.
const (
	DirectionBullish = "bullish"
	DirectionBearish = "bearish"
	DirectionNeutral = "neutral"
)

// splitStablecoins partitions a normalized batch into scoreable tokens and
// stablecoins. Stablecoins never enter scoring but still count as
// observations.
func splitStablecoins(cls *classifier.Classifier, batch []types.TokenSnapshot) (scoreable, stable []types.TokenSnapshot) {
	for _, snap := range batch {
		if cls.IsStablecoin(snap) {
			stable = append(stable, snap)
			continue
		}
		scoreable = append(scoreable, snap)
	}
	return scoreable, stable
}

package strategy

import (
	"context"
	"sort"

	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/config"
	scanerrors "github.com/token-scanner/internal/errors"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/rotation"
	"github.com/token-scanner/internal/scoring"
	"github.com/token-scanner/internal/types"
)

// VolumeSignal is the volume strategy's output for one cycle. An empty signal
// (no spikes, no anomalies) means "nothing to surface this cycle", which is a
// valid result, not a failure.
type VolumeSignal struct {
	Spikes    []types.ScoredToken
	Anomalies []types.ScoredToken
	// Universe is the full normalized batch, before stablecoin exclusion and
	// rotation filtering. The monitor forwards every entry to the history
	// tracker regardless of what was surfaced.
	Universe []types.TokenSnapshot
}

// Empty reports whether the signal surfaces nothing.
func (s *VolumeSignal) Empty() bool {
	return len(s.Spikes) == 0 && len(s.Anomalies) == 0
}

// VolumeStrategy surfaces volume spikes and volume/market-cap anomalies from
// the universe sorted by 24h volume.
type VolumeStrategy struct {
	client   MarketClient
	cls      *classifier.Classifier
	rotation *rotation.Cache
	scoring  config.ScoringConfig
	limit    int
}

// NewVolumeStrategy creates a volume strategy.
func NewVolumeStrategy(client MarketClient, cls *classifier.Classifier, rot *rotation.Cache, scoringCfg config.ScoringConfig, universeLimit int) *VolumeStrategy {
	return &VolumeStrategy{
		client:   client,
		cls:      cls,
		rotation: rot,
		scoring:  scoringCfg,
		limit:    universeLimit,
	}
}

// Analyze fetches, scores, and selects this cycle's volume signal. Upstream
// failure degrades to an empty signal; the error is logged, never returned.
func (s *VolumeStrategy) Analyze(ctx context.Context) *VolumeSignal {
	logger := logging.FromContext(ctx).WithField("strategy", "volume")

	batch, err := s.client.FetchUniverse(ctx, types.SortVolume24h, types.SortDesc, s.limit)
	if err != nil {
		if scanerrors.IsUnconfigured(err) {
			logger.Warn("Market client not configured, returning no signal")
		} else {
			logger.WithError(err).Error("Universe fetch failed, returning no signal")
		}
		return &VolumeSignal{}
	}

	scoreable, stable := splitStablecoins(s.cls, batch)
	scored := scoring.ScoreBatch(scoreable, s.scoring)

	signal := &VolumeSignal{
		Spikes:    s.selectSpikes(scored),
		Anomalies: s.selectAnomalies(scored),
		Universe:  batch,
	}

	logger.WithFields(map[string]interface{}{
		"universe":    len(batch),
		"stablecoins": len(stable),
		"spikes":      len(signal.Spikes),
		"anomalies":   len(signal.Anomalies),
	}).Info("Volume analysis complete")
	return signal
}

// selectSpikes picks up to MaxSpikes spike-classified tokens by volume score,
// skipping recently surfaced symbols and marking the chosen ones.
func (s *VolumeStrategy) selectSpikes(scored []types.ScoredToken) []types.ScoredToken {
	candidates := filterClassified(scored, types.ClassificationSpike)
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].VolumeScore > candidates[b].VolumeScore
	})
	return s.takeUnrotated(candidates, s.scoring.MaxSpikes)
}

// selectAnomalies picks up to MaxAnomalies anomaly-classified tokens by V/MC
// ratio, with the same rotation handling.
func (s *VolumeStrategy) selectAnomalies(scored []types.ScoredToken) []types.ScoredToken {
	candidates := filterClassified(scored, types.ClassificationAnomaly)
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].VolumeToMarketCapPct > candidates[b].VolumeToMarketCapPct
	})
	return s.takeUnrotated(candidates, s.scoring.MaxAnomalies)
}

func (s *VolumeStrategy) takeUnrotated(candidates []types.ScoredToken, max int) []types.ScoredToken {
	var out []types.ScoredToken
	for _, tok := range candidates {
		if len(out) >= max {
			break
		}
		if s.rotation.IsRecentlySurfaced(tok.Symbol) {
			continue
		}
		s.rotation.MarkSurfaced(tok.Symbol)
		out = append(out, tok)
	}
	return out
}

func filterClassified(scored []types.ScoredToken, c types.Classification) []types.ScoredToken {
	var out []types.ScoredToken
	for _, tok := range scored {
		if tok.Is(c) {
			out = append(out, tok)
		}
	}
	return out
}

package strategy

import (
	"context"
	"math"
	"sort"

	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/config"
	scanerrors "github.com/token-scanner/internal/errors"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/rotation"
	"github.com/token-scanner/internal/scoring"
	"github.com/token-scanner/internal/types"
)

// TrendSignal is the trend strategy's output for one cycle: the biggest
// movers plus an overall market direction call derived from them.
type TrendSignal struct {
	Movers     []types.ScoredToken
	Direction  string
	Confidence float64
	// Universe is the full normalized batch; see VolumeSignal.Universe.
	Universe []types.TokenSnapshot
}

// Empty reports whether the signal surfaces nothing.
func (s *TrendSignal) Empty() bool {
	return len(s.Movers) == 0
}

// TrendStrategy surfaces large 24h price movers from the universe sorted by
// price change.
type TrendStrategy struct {
	client   MarketClient
	cls      *classifier.Classifier
	rotation *rotation.Cache
	scoring  config.ScoringConfig
	limit    int
}

// NewTrendStrategy creates a trend strategy.
func NewTrendStrategy(client MarketClient, cls *classifier.Classifier, rot *rotation.Cache, scoringCfg config.ScoringConfig, universeLimit int) *TrendStrategy {
	return &TrendStrategy{
		client:   client,
		cls:      cls,
		rotation: rot,
		scoring:  scoringCfg,
		limit:    universeLimit,
	}
}

// Analyze fetches, scores, and selects this cycle's trend signal. Upstream
// failure degrades to an empty neutral signal; the error is logged, never
// returned.
func (t *TrendStrategy) Analyze(ctx context.Context) *TrendSignal {
	logger := logging.FromContext(ctx).WithField("strategy", "trend")

	batch, err := t.client.FetchUniverse(ctx, types.SortPriceChange24h, types.SortDesc, t.limit)
	if err != nil {
		if scanerrors.IsUnconfigured(err) {
			logger.Warn("Market client not configured, returning no signal")
		} else {
			logger.WithError(err).Error("Universe fetch failed, returning no signal")
		}
		return &TrendSignal{Direction: DirectionNeutral}
	}

	scoreable, _ := splitStablecoins(t.cls, batch)
	scored := scoring.ScoreBatch(scoreable, t.scoring)

	movers := t.selectMovers(scored)
	direction, confidence := callDirection(movers)

	signal := &TrendSignal{
		Movers:     movers,
		Direction:  direction,
		Confidence: confidence,
		Universe:   batch,
	}

	logger.WithFields(map[string]interface{}{
		"universe":   len(batch),
		"movers":     len(movers),
		"direction":  direction,
		"confidence": confidence,
	}).Info("Trend analysis complete")
	return signal
}

// selectMovers picks up to TrendMoverLimit mover-classified tokens by
// absolute price change, skipping recently surfaced symbols and marking the
// chosen ones.
func (t *TrendStrategy) selectMovers(scored []types.ScoredToken) []types.ScoredToken {
	candidates := filterClassified(scored, types.ClassificationTrendMover)
	sort.SliceStable(candidates, func(a, b int) bool {
		return math.Abs(candidates[a].PriceChange24h) > math.Abs(candidates[b].PriceChange24h)
	})

	var out []types.ScoredToken
	for _, tok := range candidates {
		if len(out) >= t.scoring.TrendMoverLimit {
			break
		}
		if t.rotation.IsRecentlySurfaced(tok.Symbol) {
			continue
		}
		t.rotation.MarkSurfaced(tok.Symbol)
		out = append(out, tok)
	}
	return out
}

// callDirection derives the market direction from the selected movers: the
// majority side wins, and confidence is the margin as a fraction of the
// selection. No movers means neutral with zero confidence.
func callDirection(movers []types.ScoredToken) (string, float64) {
	if len(movers) == 0 {
		return DirectionNeutral, 0
	}

	up := 0
	for _, tok := range movers {
		if tok.PriceChange24h > 0 {
			up++
		}
	}
	down := len(movers) - up

	direction := DirectionBearish
	if up > down {
		direction = DirectionBullish
	}
	confidence := math.Abs(float64(up-down)) / float64(len(movers))
	return direction, confidence
}

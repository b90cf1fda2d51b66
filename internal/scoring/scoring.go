// Package scoring computes activity, volume, and trend scores for normalized
// token snapshots and classifies scored batches into signal categories.
// All scoring functions are pure and total: no I/O, no shared state, and a
// zero market cap short-circuits to a zero score instead of faulting.
package scoring

import (
	"math"
	"sort"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/types"
)

const (
	// MinLiquidityMarketCap is the minimum market cap for a non-zero trend score.
	MinLiquidityMarketCap = 1_000_000
	// MinLiquidityVolume is the minimum 24h volume for a non-zero trend score.
	MinLiquidityVolume = 1_000_000

	// extremeChangePct is the |24h change| beyond which the volatility penalty applies.
	extremeChangePct = 40.0
	// volatilityPenalty scales down scores for extreme moves.
	volatilityPenalty = 0.7
	// lowVolumeRatio is the V/MC fraction below which the volume score is penalized.
	lowVolumeRatio = 0.1
	// lowVolumePenalty scales down volume scores for thin trading.
	lowVolumePenalty = 0.8
	// thinRatio is the V/MC fraction below which the trend score is penalized.
	thinRatio = 0.05
)

// ActivityScore returns a 0-100 activity score: a volume/market-cap component
// and a price-movement component, each capped at 50 before summing. A 10%
// V/MC ratio or a 25% 24h move maxes out its component.
func ActivityScore(s types.TokenSnapshot) float64 {
	if s.MarketCap <= 0 {
		return 0
	}
	ratio := s.Volume24h / s.MarketCap
	volumeComponent := math.Min(50, ratio*500)
	changeComponent := math.Min(50, math.Abs(s.PriceChange24h)*2)
	return volumeComponent + changeComponent
}

// VolumeScore returns a 0-100 volume-spike score. The ratio component is
// uncapped before the penalty stage; the final score is clamped to [0,100].
func VolumeScore(s types.TokenSnapshot) float64 {
	if s.MarketCap <= 0 {
		return 0
	}

	ratio := s.Volume24h / s.MarketCap
	ratioScore := ratio * 100
	change := math.Abs(s.PriceChange24h)
	changeScore := math.Min(50, change)

	total := ratioScore + changeScore
	if change > extremeChangePct {
		total *= volatilityPenalty
	}
	if ratio < lowVolumeRatio {
		total *= lowVolumePenalty
	}

	return clamp(total, 0, 100)
}

// TrendScore returns a 0-100 trend score with a hard liquidity gate: tokens
// under $1M market cap or $1M 24h volume score zero.
func TrendScore(s types.TokenSnapshot) float64 {
	if s.MarketCap < MinLiquidityMarketCap || s.Volume24h < MinLiquidityVolume {
		return 0
	}

	ratio := s.Volume24h / s.MarketCap
	ratioScore := math.Min(30, ratio*100)
	change := math.Abs(s.PriceChange24h)
	priceScore := math.Min(70, change*2)

	total := ratioScore + priceScore
	if change > extremeChangePct {
		total *= volatilityPenalty
	}
	if ratio < thinRatio {
		total *= volatilityPenalty
	}

	return clamp(total, 0, 100)
}

// PassesLiquidityGate reports whether the snapshot meets the minimum market
// cap and volume required for trend scoring and spike classification.
func PassesLiquidityGate(s types.TokenSnapshot) bool {
	return s.MarketCap >= MinLiquidityMarketCap && s.Volume24h >= MinLiquidityVolume
}

// Score computes all derived fields for one snapshot. Classification is a
// batch-relative property and is assigned separately by ClassifyBatch.
func Score(s types.TokenSnapshot) types.ScoredToken {
	return types.ScoredToken{
		TokenSnapshot:        s,
		ActivityScore:        ActivityScore(s),
		VolumeScore:          VolumeScore(s),
		TrendScore:           TrendScore(s),
		VolumeToMarketCapPct: s.VolumeToMarketCapRatio(),
		Classifications:      []types.Classification{types.ClassificationNone},
	}
}

// ScoreBatch scores every snapshot and classifies the batch. Stablecoins must
// already be excluded by the caller. Deterministic: no randomness, and ties
// resolve by original batch order.
func ScoreBatch(snapshots []types.TokenSnapshot, cfg config.ScoringConfig) []types.ScoredToken {
	scored := make([]types.ScoredToken, 0, len(snapshots))
	for _, snap := range snapshots {
		scored = append(scored, Score(snap))
	}
	classifyBatch(scored, cfg)
	return scored
}

// classifyBatch assigns classifications in place. A token may carry more than
// one classification; callers decide which list to draw from.
func classifyBatch(batch []types.ScoredToken, cfg config.ScoringConfig) {
	for i := range batch {
		batch[i].Classifications = nil
	}

	// Anomalies: V/MC ratio at or above the threshold.
	for i := range batch {
		if batch[i].VolumeToMarketCapPct >= cfg.AnomalyRatioPct {
			addClassification(&batch[i], types.ClassificationAnomaly)
		}
	}

	// Spikes: top-N by volume score, above the minimum score, inside the
	// plausible-change band, and past the liquidity gate.
	byVolume := rankedIndexes(batch, func(a, b types.ScoredToken) bool {
		return a.VolumeScore > b.VolumeScore
	})
	spikes := 0
	for _, i := range byVolume {
		if spikes >= cfg.SpikeLimit {
			break
		}
		tok := &batch[i]
		if tok.VolumeScore < cfg.SpikeMinScore {
			break
		}
		if math.Abs(tok.PriceChange24h) > cfg.MaxValidChangePct {
			continue
		}
		if !PassesLiquidityGate(tok.TokenSnapshot) {
			continue
		}
		addClassification(tok, types.ClassificationSpike)
		spikes++
	}

	// Trend movers: above the minimum change and in the top-N by |change|.
	byChange := rankedIndexes(batch, func(a, b types.ScoredToken) bool {
		return math.Abs(a.PriceChange24h) > math.Abs(b.PriceChange24h)
	})
	movers := 0
	for _, i := range byChange {
		if movers >= cfg.TrendMoverLimit {
			break
		}
		tok := &batch[i]
		if math.Abs(tok.PriceChange24h) <= cfg.TrendMoverMinChange {
			break
		}
		addClassification(tok, types.ClassificationTrendMover)
		movers++
	}

	for i := range batch {
		if len(batch[i].Classifications) == 0 {
			batch[i].Classifications = []types.Classification{types.ClassificationNone}
		}
	}
}

func addClassification(tok *types.ScoredToken, c types.Classification) {
	if !tok.Is(c) {
		tok.Classifications = append(tok.Classifications, c)
	}
}

// rankedIndexes returns batch indexes sorted by less, stable over batch order.
func rankedIndexes(batch []types.ScoredToken, less func(a, b types.ScoredToken) bool) []int {
	idx := make([]int, len(batch))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return less(batch[idx[a]], batch[idx[b]])
	})
	return idx
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

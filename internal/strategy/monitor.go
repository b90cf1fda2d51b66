package strategy

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/token-scanner/internal/history"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/types"
)

// AnalysisResult is the combined outcome of one monitor cycle.
type AnalysisResult struct {
	RunID          string        `json:"runId"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
	Volume         *VolumeSignal `json:"volume"`
	Trend          *TrendSignal  `json:"trend"`
	TokensObserved int           `json:"tokensObserved"`
}

// PerformanceInsights bundles the tracker's aggregate queries for reporting.
type PerformanceInsights struct {
	Stats         history.PerformanceStats `json:"stats"`
	Opportunities []history.Opportunity    `json:"opportunities"`
	Patterns      history.SuccessPatterns  `json:"patterns"`
}

// Monitor composes the volume and trend strategies over one shared history
// tracker. Every normalized observation from either strategy reaches the
// tracker, whether or not it was surfaced.
type Monitor struct {
	volume  *VolumeStrategy
	trend   *TrendStrategy
	tracker *history.Tracker
}

// NewMonitor creates a monitor over the given strategies and tracker.
func NewMonitor(volume *VolumeStrategy, trend *TrendStrategy, tracker *history.Tracker) *Monitor {
	return &Monitor{
		volume:  volume,
		trend:   trend,
		tracker: tracker,
	}
}

// RunAnalysis runs both strategies concurrently and forwards their universes
// to the history tracker. Never returns an error: a failed cycle is an empty
// result.
func (m *Monitor) RunAnalysis(ctx context.Context) *AnalysisResult {
	runID := uuid.NewString()
	logger := logging.FromContext(ctx).WithField("runId", runID)
	ctx = logging.WithLogger(ctx, logger)

	start := time.Now()
	logger.Info("Starting analysis cycle")

	var (
		wg           sync.WaitGroup
		volumeSignal *VolumeSignal
		trendSignal  *TrendSignal
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		volumeSignal = m.volume.Analyze(ctx)
	}()
	go func() {
		defer wg.Done()
		trendSignal = m.trend.Analyze(ctx)
	}()
	wg.Wait()

	observed := m.recordObservations(ctx, volumeSignal.Universe, trendSignal.Universe)

	result := &AnalysisResult{
		RunID:          runID,
		StartedAt:      start,
		Duration:       time.Since(start),
		Volume:         volumeSignal,
		Trend:          trendSignal,
		TokensObserved: observed,
	}

	logger.WithFields(map[string]interface{}{
		"spikes":    len(volumeSignal.Spikes),
		"anomalies": len(volumeSignal.Anomalies),
		"movers":    len(trendSignal.Movers),
		"observed":  observed,
		"duration":  result.Duration.String(),
	}).Info("Analysis cycle complete")
	return result
}

// recordObservations forwards every snapshot to the tracker, deduplicating
// symbols across the two universes so one cycle counts one observation per
// symbol.
func (m *Monitor) recordObservations(ctx context.Context, universes ...[]types.TokenSnapshot) int {
	seen := make(map[string]struct{})
	for _, universe := range universes {
		for _, snap := range universe {
			if _, ok := seen[snap.Symbol]; ok {
				continue
			}
			seen[snap.Symbol] = struct{}{}
			m.tracker.Update(ctx, snap)
		}
	}
	return len(seen)
}

// Insights returns the tracker's aggregate queries for the last N days of
// first mentions.
func (m *Monitor) Insights(days int) PerformanceInsights {
	return PerformanceInsights{
		Stats:         m.tracker.GetPerformanceStats(),
		Opportunities: m.tracker.GetRecentOpportunities(days),
		Patterns:      m.tracker.FindSuccessPatterns(),
	}
}

// ExportData writes the tracker's full state to path as indented JSON.
func (m *Monitor) ExportData(path string) error {
	doc := m.tracker.Export()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Tracker exposes the shared tracker, for the stats API.
func (m *Monitor) Tracker() *history.Tracker {
	return m.tracker
}

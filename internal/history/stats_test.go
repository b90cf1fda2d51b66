package history

import (
	"context"
	"testing"
	"time"
)

func approx(a, b float64) bool {
	diff := a - b
	return diff < 1e-6 && diff > -1e-6
}

func seedTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := testTracker()
	ctx := context.Background()

	// WINNER: +60% inside 24h.
	tr.Update(ctx, snapshotAt("WINNER", 1.0, trackerEpoch.Add(-20*time.Hour)))
	tr.Update(ctx, snapshotAt("WINNER", 1.6, trackerEpoch.Add(-10*time.Hour)))

	// MODEST: +15% at 30h, so only the 48h and 7d windows see it.
	tr.Update(ctx, snapshotAt("MODEST", 2.0, trackerEpoch.Add(-40*time.Hour)))
	tr.Update(ctx, snapshotAt("MODEST", 2.3, trackerEpoch.Add(-10*time.Hour)))

	// FLAT: never gained.
	tr.Update(ctx, snapshotAt("FLAT", 5.0, trackerEpoch.Add(-30*time.Hour)))
	tr.Update(ctx, snapshotAt("FLAT", 4.5, trackerEpoch.Add(-5*time.Hour)))

	return tr
}

func TestGetPerformanceStats(t *testing.T) {
	tr := seedTracker(t)

	stats := tr.GetPerformanceStats()

	if stats.TotalTokens != 3 {
		t.Fatalf("TotalTokens = %d, want 3", stats.TotalTokens)
	}
	if stats.Window24h.TokensWithGain != 1 {
		t.Errorf("Window24h.TokensWithGain = %d, want 1", stats.Window24h.TokensWithGain)
	}
	if stats.Window48h.TokensWithGain != 2 {
		t.Errorf("Window48h.TokensWithGain = %d, want 2", stats.Window48h.TokensWithGain)
	}
	if stats.Window7d.BestSymbol != "WINNER" {
		t.Errorf("Window7d.BestSymbol = %q, want WINNER", stats.Window7d.BestSymbol)
	}

	// Averages run over all records including the flat one: (60+0+0)/3.
	if !approx(stats.Window24h.AvgGainPercent, 20.0) {
		t.Errorf("Window24h.AvgGainPercent = %v, want 20.0", stats.Window24h.AvgGainPercent)
	}
	// (60+15+0)/3 = 25.
	if !approx(stats.Window48h.AvgGainPercent, 25.0) {
		t.Errorf("Window48h.AvgGainPercent = %v, want 25.0", stats.Window48h.AvgGainPercent)
	}

	// Only WINNER crossed the success threshold.
	if len(stats.BestPerformers) != 1 || stats.BestPerformers[0].Symbol != "WINNER" {
		t.Errorf("BestPerformers = %+v, want only WINNER", stats.BestPerformers)
	}
}

func TestGetRecentOpportunities(t *testing.T) {
	tr := seedTracker(t)

	opportunities := tr.GetRecentOpportunities(7)

	// WINNER (+60% max) and MODEST (+15% max) cross the 10% bar; FLAT does not.
	if len(opportunities) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(opportunities))
	}

	// Ordered by current gain descending: WINNER +60%, MODEST +15%.
	if opportunities[0].Symbol != "WINNER" || opportunities[1].Symbol != "MODEST" {
		t.Errorf("order = [%s, %s], want [WINNER, MODEST]",
			opportunities[0].Symbol, opportunities[1].Symbol)
	}
	if opportunities[0].CurrentGainPercent <= opportunities[1].CurrentGainPercent {
		t.Error("opportunities must be ordered by current gain descending")
	}
}

func TestGetRecentOpportunitiesCutoff(t *testing.T) {
	tr := testTracker()
	ctx := context.Background()

	// First mentioned 10 days ago: outside a 7 day lookback.
	tr.Update(ctx, snapshotAt("OLD", 1.0, trackerEpoch.Add(-10*24*time.Hour)))
	tr.Update(ctx, snapshotAt("OLD", 1.5, trackerEpoch.Add(-9*24*time.Hour)))

	if got := tr.GetRecentOpportunities(7); len(got) != 0 {
		t.Errorf("opportunities = %d, want 0 for out-of-window first mentions", len(got))
	}
	if got := tr.GetRecentOpportunities(14); len(got) != 1 {
		t.Errorf("opportunities = %d, want 1 with a wider lookback", len(got))
	}
}

func TestFindSuccessPatterns(t *testing.T) {
	tr := seedTracker(t)

	patterns := tr.FindSuccessPatterns()

	if patterns.TotalSuccessful != 1 {
		t.Fatalf("TotalSuccessful = %d, want 1", patterns.TotalSuccessful)
	}
	// WINNER peaked inside 24h of first mention.
	if patterns.BestWindowCounts["24h"] != 1 {
		t.Errorf("BestWindowCounts = %v, want 24h:1", patterns.BestWindowCounts)
	}
	// First mention at 10% V/MC ratio (5M volume / 50M mcap).
	if !approx(patterns.AvgFirstMentionRatio, 10.0) {
		t.Errorf("AvgFirstMentionRatio = %v, want 10.0", patterns.AvgFirstMentionRatio)
	}
	// Peak was 10h after first mention.
	if !approx(patterns.AvgHoursToPeak, 10.0) {
		t.Errorf("AvgHoursToPeak = %v, want 10.0", patterns.AvgHoursToPeak)
	}
}

func TestExport(t *testing.T) {
	tr := seedTracker(t)

	doc := tr.Export()

	if !doc.ExportTime.Equal(trackerEpoch) {
		t.Errorf("ExportTime = %v, want %v", doc.ExportTime, trackerEpoch)
	}
	if len(doc.History) != 3 {
		t.Errorf("History entries = %d, want 3", len(doc.History))
	}
	if doc.Stats.TotalTokens != 3 {
		t.Errorf("Stats.TotalTokens = %d, want 3", doc.Stats.TotalTokens)
	}
	if _, ok := doc.History["WINNER"]; !ok {
		t.Error("History missing WINNER")
	}
}

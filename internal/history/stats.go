package history

import (
	"sort"
	"time"
)

// WindowStats aggregates one gain window across all tracked records.
type WindowStats struct {
	TokensWithGain int     `json:"tokensWithGain"`
	AvgGainPercent float64 `json:"avgGainPercent"`
	MaxGainPercent float64 `json:"maxGainPercent"`
	BestSymbol     string  `json:"bestSymbol,omitempty"`
}

// PerformanceStats summarizes tracker-wide performance per gain window.
type PerformanceStats struct {
	TotalTokens    int             `json:"totalTokens"`
	Window24h      WindowStats     `json:"window24h"`
	Window48h      WindowStats     `json:"window48h"`
	Window7d       WindowStats     `json:"window7d"`
	BestPerformers []BestPerformer `json:"bestPerformers,omitempty"`
}

// BestPerformer is a record whose 7d max gain crossed the success threshold.
type BestPerformer struct {
	Symbol            string    `json:"symbol"`
	FirstMentionDate  time.Time `json:"firstMentionDate"`
	MaxGainPercent7d  float64   `json:"maxGainPercent7d"`
	FirstMentionRatio float64   `json:"firstMentionVolumeToMarketCapRatio"`
}

// Opportunity is a recently first-mentioned token ordered by its current gain.
type Opportunity struct {
	Symbol             string    `json:"symbol"`
	FirstMentionDate   time.Time `json:"firstMentionDate"`
	FirstMentionPrice  float64   `json:"firstMentionPrice"`
	CurrentPrice       float64   `json:"currentPrice"`
	CurrentGainPercent float64   `json:"currentGainPercent"`
	MaxGainPercent7d   float64   `json:"maxGainPercent7d"`
}

// SuccessPatterns describes what the successful calls had in common at first
// mention time.
type SuccessPatterns struct {
	TotalSuccessful       int            `json:"totalSuccessful"`
	AvgFirstMentionRatio  float64        `json:"avgFirstMentionVolumeToMarketCapRatio"`
	AvgHoursToPeak        float64        `json:"avgHoursToPeak"`
	BestWindowCounts      map[string]int `json:"bestWindowCounts"`
	SuccessThresholdPct   float64        `json:"successThresholdPct"`
}

// ExportDocument is the full tracker state plus summary stats, for offline
// analysis.
type ExportDocument struct {
	ExportTime time.Time          `json:"exportTime"`
	Stats      PerformanceStats   `json:"stats"`
	History    map[string]*Record `json:"history"`
}

// GetPerformanceStats computes tracker-wide stats. Averages are taken over all
// tracked records, including those with zero gain.
func (t *Tracker) GetPerformanceStats() PerformanceStats {
	var stats PerformanceStats
	var sum24, sum48, sum7 float64

	t.forEach(func(record *Record) {
		stats.TotalTokens++

		accumulateWindow(&stats.Window24h, &sum24, record.Symbol, record.MaxGainPercent24h)
		accumulateWindow(&stats.Window48h, &sum48, record.Symbol, record.MaxGainPercent48h)
		accumulateWindow(&stats.Window7d, &sum7, record.Symbol, record.MaxGainPercent7d)

		if record.MaxGainPercent7d >= successGainPct {
			stats.BestPerformers = append(stats.BestPerformers, BestPerformer{
				Symbol:            record.Symbol,
				FirstMentionDate:  record.FirstMentionDate,
				MaxGainPercent7d:  record.MaxGainPercent7d,
				FirstMentionRatio: record.FirstMentionRatioPct,
			})
		}
	})

	if stats.TotalTokens > 0 {
		stats.Window24h.AvgGainPercent = sum24 / float64(stats.TotalTokens)
		stats.Window48h.AvgGainPercent = sum48 / float64(stats.TotalTokens)
		stats.Window7d.AvgGainPercent = sum7 / float64(stats.TotalTokens)
	}

	sort.Slice(stats.BestPerformers, func(a, b int) bool {
		return stats.BestPerformers[a].MaxGainPercent7d > stats.BestPerformers[b].MaxGainPercent7d
	})
	return stats
}

func accumulateWindow(w *WindowStats, sum *float64, symbol string, gain float64) {
	*sum += gain
	if gain > 0 {
		w.TokensWithGain++
	}
	if gain > w.MaxGainPercent {
		w.MaxGainPercent = gain
		w.BestSymbol = symbol
	}
}

// GetRecentOpportunities returns tokens first mentioned within the last `days`
// days whose 7d max gain crossed the opportunity threshold, ordered by current
// gain descending.
func (t *Tracker) GetRecentOpportunities(days int) []Opportunity {
	if days <= 0 {
		days = 7
	}
	cutoff := t.nowFunc().Add(-time.Duration(days) * 24 * time.Hour)

	var out []Opportunity
	t.forEach(func(record *Record) {
		if record.FirstMentionDate.Before(cutoff) {
			return
		}
		if record.MaxGainPercent7d < opportunityGainPct {
			return
		}
		out = append(out, Opportunity{
			Symbol:             record.Symbol,
			FirstMentionDate:   record.FirstMentionDate,
			FirstMentionPrice:  record.FirstMentionPrice,
			CurrentPrice:       record.CurrentPrice,
			CurrentGainPercent: record.CurrentGainPercent(),
			MaxGainPercent7d:   record.MaxGainPercent7d,
		})
	})

	sort.Slice(out, func(a, b int) bool {
		return out[a].CurrentGainPercent > out[b].CurrentGainPercent
	})
	return out
}

// FindSuccessPatterns aggregates the first-mention traits of records whose 7d
// max gain crossed the success threshold.
func (t *Tracker) FindSuccessPatterns() SuccessPatterns {
	patterns := SuccessPatterns{
		BestWindowCounts:    map[string]int{},
		SuccessThresholdPct: successGainPct,
	}

	var ratioSum, hoursSum float64
	peaked := 0

	t.forEach(func(record *Record) {
		if record.MaxGainPercent7d < successGainPct {
			return
		}
		patterns.TotalSuccessful++
		ratioSum += record.FirstMentionRatioPct
		patterns.BestWindowCounts[bestWindow(record)]++

		if record.PeakAt != nil {
			hoursSum += record.PeakAt.Sub(record.FirstMentionDate).Hours()
			peaked++
		}
	})

	if patterns.TotalSuccessful > 0 {
		patterns.AvgFirstMentionRatio = ratioSum / float64(patterns.TotalSuccessful)
	}
	if peaked > 0 {
		patterns.AvgHoursToPeak = hoursSum / float64(peaked)
	}
	return patterns
}

// bestWindow names the earliest window that already contains the peak gain.
func bestWindow(record *Record) string {
	switch {
	case record.MaxGainPercent24h >= record.MaxGainPercent7d:
		return "24h"
	case record.MaxGainPercent48h >= record.MaxGainPercent7d:
		return "48h"
	default:
		return "7d"
	}
}

// Export returns the full tracker state for offline analysis.
func (t *Tracker) Export() ExportDocument {
	doc := ExportDocument{
		ExportTime: t.nowFunc(),
		Stats:      t.GetPerformanceStats(),
		History:    make(map[string]*Record),
	}
	t.forEach(func(record *Record) {
		doc.History[record.Symbol] = record
	})
	return doc
}

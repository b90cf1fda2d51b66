// Package history maintains the per-symbol performance ledger for every token
// the strategies observe. The tracker exclusively owns and mutates records;
// coordinators only read from it or submit updates.
//
// Internal state is sharded by symbol hash so concurrent updates to different
// symbols do not contend, while updates to the same symbol serialize on its
// shard lock. That keeps the max-gain fields monotonically non-decreasing
// under concurrency.
package history

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/types"
)

const (
	// successGainPct marks a record as a successful call for pattern analysis.
	successGainPct = 20.0
	// opportunityGainPct is the minimum 7d max gain for the opportunity list.
	opportunityGainPct = 10.0
)

// Gain windows measured from the first mention.
const (
	Window24h = 24 * time.Hour
	Window48h = 48 * time.Hour
	Window7d  = 7 * 24 * time.Hour
)

// Observation is one prior snapshot retained on a record, used to recompute
// windowed maxima and for the archive sink.
type Observation struct {
	Price      float64   `json:"price"`
	Volume24h  float64   `json:"volume24h"`
	MarketCap  float64   `json:"marketCap"`
	ObservedAt time.Time `json:"observedAt"`
}

// Record is the authoritative performance ledger for one symbol. The first
// mention fields are set once and never change; the max gain fields are
// monotonically non-decreasing; the current fields always reflect the latest
// observation.
type Record struct {
	Symbol string `json:"symbol"`

	FirstMentionPrice     float64   `json:"firstMentionPrice"`
	FirstMentionDate      time.Time `json:"firstMentionDate"`
	FirstMentionVolume    float64   `json:"firstMentionVolume"`
	FirstMentionMarketCap float64   `json:"firstMentionMarketCap"`
	FirstMentionRatioPct  float64   `json:"firstMentionVolumeToMarketCapRatio"`

	CurrentPrice     float64 `json:"currentPrice"`
	CurrentVolume    float64 `json:"currentVolume"`
	CurrentMarketCap float64 `json:"currentMarketCap"`

	MaxGainPercent24h float64    `json:"maxGainPercent24h"`
	MaxGainPercent48h float64    `json:"maxGainPercent48h"`
	MaxGainPercent7d  float64    `json:"maxGainPercent7d"`
	PeakAt            *time.Time `json:"peakAt,omitempty"`

	LastUpdated  time.Time     `json:"lastUpdated"`
	Observations []Observation `json:"observations,omitempty"`
}

// CurrentGainPercent returns the gain of the latest price over the first
// mention price, in percent.
func (r *Record) CurrentGainPercent() float64 {
	if r.FirstMentionPrice <= 0 {
		return 0
	}
	return (r.CurrentPrice - r.FirstMentionPrice) / r.FirstMentionPrice * 100
}

// RecordStore is the opaque relational write-through sink for records.
type RecordStore interface {
	Upsert(ctx context.Context, record *Record) error
	LoadAll(ctx context.Context) ([]*Record, error)
}

// ObservationArchive is the opaque append-only sink for raw observations.
type ObservationArchive interface {
	Append(ctx context.Context, symbol string, obs Observation) error
}

type shard struct {
	mu      sync.Mutex
	records map[string]*Record
}

// Tracker maintains records for all observed symbols.
type Tracker struct {
	shards          []*shard
	maxObservations int
	nowFunc         func() time.Time

	store   RecordStore        // optional write-through, may be nil
	archive ObservationArchive // optional observation sink, may be nil
}

// NewTracker creates a tracker from configuration.
func NewTracker(cfg config.HistoryConfig) *Tracker {
	shardCount := cfg.Shards
	if shardCount <= 0 {
		shardCount = 16
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{records: make(map[string]*Record)}
	}
	maxObs := cfg.MaxObservations
	if maxObs <= 0 {
		maxObs = 100
	}
	return &Tracker{
		shards:          shards,
		maxObservations: maxObs,
		nowFunc:         time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (t *Tracker) SetNowFunc(now func() time.Time) {
	t.nowFunc = now
}

// SetStore attaches the relational write-through sink.
func (t *Tracker) SetStore(store RecordStore) {
	t.store = store
}

// SetArchive attaches the observation archive sink.
func (t *Tracker) SetArchive(archive ObservationArchive) {
	t.archive = archive
}

func (t *Tracker) shardFor(symbol string) *shard {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return t.shards[h.Sum32()%uint32(len(t.shards))]
}

// Update records one observation for snapshot.Symbol. Safe to call
// concurrently; updates to the same symbol serialize on its shard. Persistence
// sinks run after the shard lock is released and their failures are logged,
// never propagated.
func (t *Tracker) Update(ctx context.Context, snap types.TokenSnapshot) {
	if snap.Symbol == "" {
		return
	}

	observedAt := snap.ObservedAt
	if observedAt.IsZero() {
		observedAt = t.nowFunc()
	}
	obs := Observation{
		Price:      snap.Price,
		Volume24h:  snap.Volume24h,
		MarketCap:  snap.MarketCap,
		ObservedAt: observedAt,
	}

	sh := t.shardFor(snap.Symbol)
	sh.mu.Lock()
	record, ok := sh.records[snap.Symbol]
	if !ok {
		record = &Record{
			Symbol:                snap.Symbol,
			FirstMentionPrice:     snap.Price,
			FirstMentionDate:      observedAt,
			FirstMentionVolume:    snap.Volume24h,
			FirstMentionMarketCap: snap.MarketCap,
			FirstMentionRatioPct:  snap.VolumeToMarketCapRatio(),
		}
		sh.records[snap.Symbol] = record
	}

	t.applyObservation(record, obs)
	snapshot := copyRecord(record)
	sh.mu.Unlock()

	t.writeThrough(ctx, snapshot, obs)
}

// applyObservation mutates record under its shard lock.
func (t *Tracker) applyObservation(record *Record, obs Observation) {
	record.CurrentPrice = obs.Price
	record.CurrentVolume = obs.Volume24h
	record.CurrentMarketCap = obs.MarketCap
	record.LastUpdated = obs.ObservedAt

	if record.FirstMentionPrice > 0 {
		gain := (obs.Price - record.FirstMentionPrice) / record.FirstMentionPrice * 100
		age := obs.ObservedAt.Sub(record.FirstMentionDate)

		// Each window's max only ever moves up.
		if age <= Window24h && gain > record.MaxGainPercent24h {
			record.MaxGainPercent24h = gain
		}
		if age <= Window48h && gain > record.MaxGainPercent48h {
			record.MaxGainPercent48h = gain
		}
		if age <= Window7d && gain > record.MaxGainPercent7d {
			record.MaxGainPercent7d = gain
			peak := obs.ObservedAt
			record.PeakAt = &peak
		}
	}

	record.Observations = append(record.Observations, obs)
	if len(record.Observations) > t.maxObservations {
		record.Observations = record.Observations[len(record.Observations)-t.maxObservations:]
	}
}

func (t *Tracker) writeThrough(ctx context.Context, record *Record, obs Observation) {
	logger := logging.FromContext(ctx)
	if t.store != nil {
		if err := t.store.Upsert(ctx, record); err != nil {
			logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": record.Symbol,
			}).Warn("History record write-through failed")
		}
	}
	if t.archive != nil {
		if err := t.archive.Append(ctx, record.Symbol, obs); err != nil {
			logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": record.Symbol,
			}).Warn("Observation archive append failed")
		}
	}
}

// GetHistory returns a copy of the record for symbol, or nil if unseen.
func (t *Tracker) GetHistory(symbol string) *Record {
	sh := t.shardFor(symbol)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	record, ok := sh.records[symbol]
	if !ok {
		return nil
	}
	return copyRecord(record)
}

// Restore seeds the tracker from previously persisted records. Intended for
// process start, before any concurrent updates begin.
func (t *Tracker) Restore(records []*Record) {
	for _, record := range records {
		if record == nil || record.Symbol == "" {
			continue
		}
		sh := t.shardFor(record.Symbol)
		sh.mu.Lock()
		sh.records[record.Symbol] = copyRecord(record)
		sh.mu.Unlock()
	}
}

// forEach invokes fn with a copy of every record.
func (t *Tracker) forEach(fn func(*Record)) {
	for _, sh := range t.shards {
		sh.mu.Lock()
		copies := make([]*Record, 0, len(sh.records))
		for _, record := range sh.records {
			copies = append(copies, copyRecord(record))
		}
		sh.mu.Unlock()
		for _, record := range copies {
			fn(record)
		}
	}
}

// Len returns the number of tracked symbols.
func (t *Tracker) Len() int {
	total := 0
	for _, sh := range t.shards {
		sh.mu.Lock()
		total += len(sh.records)
		sh.mu.Unlock()
	}
	return total
}

func copyRecord(record *Record) *Record {
	dup := *record
	if record.PeakAt != nil {
		peak := *record.PeakAt
		dup.PeakAt = &peak
	}
	dup.Observations = make([]Observation, len(record.Observations))
	copy(dup.Observations, record.Observations)
	return &dup
}

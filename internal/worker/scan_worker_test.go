package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/history"
	"github.com/token-scanner/internal/rotation"
	"github.com/token-scanner/internal/strategy"
	"github.com/token-scanner/internal/types"
)

type countingClient struct {
	calls chan types.SortKey
}

func (c *countingClient) FetchUniverse(_ context.Context, sortKey types.SortKey, _ types.SortDirection, _ int) ([]types.TokenSnapshot, error) {
	select {
	case c.calls <- sortKey:
	default:
	}
	return []types.TokenSnapshot{{
		Symbol: "TEST", Price: 1.0, Volume24h: 2_000_000, MarketCap: 50_000_000,
		ObservedAt: time.Now(),
	}}, nil
}

func testMonitor(client strategy.MarketClient) *strategy.Monitor {
	cls := classifier.New(config.StablecoinConfig{PriceLow: 0.95, PriceHigh: 1.05})
	rot := rotation.NewCache(config.RotationConfig{Window: 48 * time.Hour, Capacity: 50})
	tracker := history.NewTracker(config.HistoryConfig{MaxObservations: 100, Shards: 16})
	cfg := config.ScoringConfig{
		AnomalyRatioPct: 80, SpikeLimit: 10, SpikeMinScore: 40,
		TrendMoverMinChange: 5, TrendMoverLimit: 5, MaxValidChangePct: 30,
		MaxSpikes: 2, MaxAnomalies: 1,
	}
	return strategy.NewMonitor(
		strategy.NewVolumeStrategy(client, cls, rot, cfg, 500),
		strategy.NewTrendStrategy(client, cls, rot, cfg, 500),
		tracker,
	)
}

func TestScanWorkerRunsImmediately(t *testing.T) {
	client := &countingClient{calls: make(chan types.SortKey, 16)}
	w := NewScanWorker(testMonitor(client), time.Hour)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop(ctx)

	// The first cycle runs without waiting for the ticker.
	select {
	case <-client.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run immediately")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		lastRun, observed := w.LastRun()
		if !lastRun.IsZero() {
			if observed != 1 {
				t.Errorf("LastRun() observed = %d, want 1", observed)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("LastRun() never recorded a cycle")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScanWorkerStartTwice(t *testing.T) {
	client := &countingClient{calls: make(chan types.SortKey, 16)}
	w := NewScanWorker(testMonitor(client), time.Hour)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop(ctx)

	if err := w.Start(ctx); err == nil {
		t.Error("second Start() must fail while running")
	}
}

func TestScanWorkerStop(t *testing.T) {
	client := &countingClient{calls: make(chan types.SortKey, 16)}
	w := NewScanWorker(testMonitor(client), time.Hour)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(ctx); err == nil {
		t.Error("Stop() on a stopped worker must fail")
	}
}

func TestScanWorkerDefaultInterval(t *testing.T) {
	w := NewScanWorker(testMonitor(&countingClient{calls: make(chan types.SortKey, 1)}), 0)
	if w.interval != 5*time.Minute {
		t.Errorf("interval = %v, want default 5m", w.interval)
	}
}

func TestScanWorkerSurvivesFailingCycles(t *testing.T) {
	w := NewScanWorker(testMonitor(&failingClient{}), time.Hour)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// A failed cycle still records its run with zero observations.
	deadline := time.Now().Add(2 * time.Second)
	for {
		lastRun, observed := w.LastRun()
		if !lastRun.IsZero() {
			if observed != 0 {
				t.Errorf("observed = %d, want 0 for failed cycle", observed)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cycle never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

type failingClient struct{}

func (f *failingClient) FetchUniverse(context.Context, types.SortKey, types.SortDirection, int) ([]types.TokenSnapshot, error) {
	return nil, errors.New("provider down")
}

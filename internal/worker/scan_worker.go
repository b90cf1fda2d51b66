// Package worker runs the periodic analysis loop.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/strategy"
)

// ScanWorker invokes the monitor on a fixed interval. One cycle runs at a
// time; a slow cycle delays the next tick rather than overlapping it.
type ScanWorker struct {
	monitor  *strategy.Monitor
	interval time.Duration

	mu       sync.Mutex
	running  bool
	lastRun  time.Time
	lastSize int

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScanWorker creates a scan worker.
func NewScanWorker(monitor *strategy.Monitor, interval time.Duration) *ScanWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ScanWorker{
		monitor:  monitor,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the scan loop. The first cycle runs immediately rather than
// waiting one full interval.
func (w *ScanWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("scan worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	logging.FromContext(ctx).WithField("interval", w.interval.String()).Info("Starting scan worker")

	go w.scanLoop(ctx)
	return nil
}

// Stop signals the loop and waits for the in-flight cycle to finish.
func (w *ScanWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("scan worker is not running")
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("stop timeout")
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// LastRun returns when the most recent cycle started and how many tokens it
// observed.
func (w *ScanWorker) LastRun() (time.Time, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastSize
}

func (w *ScanWorker) scanLoop(ctx context.Context) {
	defer close(w.doneCh)

	logger := logging.FromContext(ctx)

	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scan worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("Scan worker stop signal received")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *ScanWorker) runCycle(ctx context.Context) {
	result := w.monitor.RunAnalysis(ctx)

	w.mu.Lock()
	w.lastRun = result.StartedAt
	w.lastSize = result.TokensObserved
	w.mu.Unlock()
}

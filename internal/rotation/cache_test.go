package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/token-scanner/internal/config"
)

func testCache(window time.Duration, capacity int) (*Cache, *time.Time) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	c := NewCache(config.RotationConfig{Window: window, Capacity: capacity})
	c.SetNowFunc(func() time.Time { return now })
	return c, &now
}

func TestRotationWindow(t *testing.T) {
	c, now := testCache(48*time.Hour, 50)

	c.MarkSurfaced("BTC")

	if !c.IsRecentlySurfaced("BTC") {
		t.Error("BTC should be excluded immediately after surfacing")
	}

	// Just inside the window.
	*now = now.Add(48*time.Hour - time.Minute)
	if !c.IsRecentlySurfaced("BTC") {
		t.Error("BTC should still be excluded just inside the window")
	}

	// At the window boundary the symbol becomes eligible again.
	*now = now.Add(time.Minute)
	if c.IsRecentlySurfaced("BTC") {
		t.Error("BTC should be eligible once the window has elapsed")
	}

	if c.IsRecentlySurfaced("NEVER") {
		t.Error("unseen symbol should never be excluded")
	}
}

func TestRotationBypass(t *testing.T) {
	c := NewCache(config.RotationConfig{Window: 48 * time.Hour, Capacity: 50, Bypass: true})

	c.MarkSurfaced("BTC")
	if c.IsRecentlySurfaced("BTC") {
		t.Error("bypass mode must disable rotation exclusion")
	}
}

func TestRotationCapacityEvictsStale(t *testing.T) {
	c, now := testCache(48*time.Hour, 3)

	c.MarkSurfaced("OLD1")
	c.MarkSurfaced("OLD2")

	// Age the first two past the window, then fill up.
	*now = now.Add(49 * time.Hour)
	c.MarkSurfaced("NEW1")
	c.MarkSurfaced("NEW2")

	if c.Len() > 3 {
		t.Errorf("Len() = %d, want <= capacity 3", c.Len())
	}
	if c.IsRecentlySurfaced("OLD1") {
		t.Error("stale entry should have been evicted")
	}
	if !c.IsRecentlySurfaced("NEW1") || !c.IsRecentlySurfaced("NEW2") {
		t.Error("fresh entries should survive eviction")
	}
}

func TestRotationCapacityHardClear(t *testing.T) {
	c, _ := testCache(48*time.Hour, 2)

	// All fresh, so stale eviction removes nothing and the cache clears down
	// to the newest entry.
	c.MarkSurfaced("A")
	c.MarkSurfaced("B")
	c.MarkSurfaced("C")

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after hard clear", c.Len())
	}
	if !c.IsRecentlySurfaced("C") {
		t.Error("the newest entry must survive the clear")
	}
}

type fakeStore struct {
	saved  map[string]time.Time
	loaded map[string]time.Time
}

func (s *fakeStore) Save(_ context.Context, entries map[string]time.Time) error {
	s.saved = entries
	return nil
}

func (s *fakeStore) Load(_ context.Context) (map[string]time.Time, error) {
	return s.loaded, nil
}

func TestRotationRestoreDropsStale(t *testing.T) {
	c, now := testCache(48*time.Hour, 50)

	store := &fakeStore{loaded: map[string]time.Time{
		"FRESH": now.Add(-1 * time.Hour),
		"STALE": now.Add(-49 * time.Hour),
	}}

	if err := c.Restore(context.Background(), store); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if !c.IsRecentlySurfaced("FRESH") {
		t.Error("fresh entry should be restored")
	}
	if c.IsRecentlySurfaced("STALE") {
		t.Error("stale entry must be dropped on load")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestRotationPersistRoundTrip(t *testing.T) {
	c, now := testCache(48*time.Hour, 50)

	c.MarkSurfaced("BTC")
	c.MarkSurfaced("ETH")

	store := &fakeStore{}
	if err := c.Persist(context.Background(), store); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	if len(store.saved) != 2 {
		t.Fatalf("saved %d entries, want 2", len(store.saved))
	}
	if !store.saved["BTC"].Equal(*now) {
		t.Errorf("saved timestamp = %v, want %v", store.saved["BTC"], *now)
	}
}

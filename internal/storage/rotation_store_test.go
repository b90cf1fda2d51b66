package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRotationStore(t *testing.T) *RedisRotationStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisRotationStore(NewRedisCacheFromClient(client))
}

func TestRotationStoreRoundTrip(t *testing.T) {
	store := testRotationStore(t)
	ctx := context.Background()

	entries := map[string]time.Time{
		"BTC": time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		"ETH": time.Date(2026, 1, 14, 6, 30, 0, 0, time.UTC),
	}

	if err := store.Save(ctx, entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(loaded))
	}
	for symbol, want := range entries {
		if !loaded[symbol].Equal(want) {
			t.Errorf("loaded[%s] = %v, want %v", symbol, loaded[symbol], want)
		}
	}
}

func TestRotationStoreSaveReplaces(t *testing.T) {
	store := testRotationStore(t)
	ctx := context.Background()

	first := map[string]time.Time{"BTC": time.Now().UTC()}
	second := map[string]time.Time{"ETH": time.Now().UTC()}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := loaded["BTC"]; ok {
		t.Error("Save() must replace the previous state, BTC should be gone")
	}
	if _, ok := loaded["ETH"]; !ok {
		t.Error("ETH missing after second Save()")
	}
}

func TestRotationStoreSkipsBadTimestamps(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mr.HSet(rotationKey, "GOOD", time.Now().UTC().Format(time.RFC3339Nano))
	mr.HSet(rotationKey, "BAD", "not-a-timestamp")

	store := NewRedisRotationStore(NewRedisCacheFromClient(client))
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, ok := loaded["GOOD"]; !ok {
		t.Error("GOOD entry missing")
	}
	if _, ok := loaded["BAD"]; ok {
		t.Error("entry with bad timestamp must be skipped")
	}
}

func TestRotationStoreLoadEmpty(t *testing.T) {
	store := testRotationStore(t)

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Load() on empty store = %d entries, want 0", len(loaded))
	}
}

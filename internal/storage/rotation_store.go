package storage

import (
	"context"
	"time"

	scanerrors "github.com/token-scanner/internal/errors"
	"github.com/token-scanner/internal/logging"
)

// rotationKey is the Redis hash holding symbol -> last-surfaced timestamps.
const rotationKey = "rotation:surfaced"

// RedisRotationStore persists the rotation cache contents in a Redis hash so
// rotation state survives process restarts. Implements rotation.Store.
type RedisRotationStore struct {
	cache *RedisCache
}

// NewRedisRotationStore creates a rotation store backed by the given cache.
func NewRedisRotationStore(cache *RedisCache) *RedisRotationStore {
	return &RedisRotationStore{cache: cache}
}

// Save replaces the persisted rotation state with entries.
func (s *RedisRotationStore) Save(ctx context.Context, entries map[string]time.Time) error {
	pipe := s.cache.Client().TxPipeline()
	pipe.Del(ctx, rotationKey)
	if len(entries) > 0 {
		fields := make(map[string]interface{}, len(entries))
		for symbol, surfacedAt := range entries {
			fields[symbol] = surfacedAt.UTC().Format(time.RFC3339Nano)
		}
		pipe.HSet(ctx, rotationKey, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return scanerrors.NewCacheError("save rotation state", err)
	}
	return nil
}

// Load reads the persisted rotation state. Entries with unparseable
// timestamps are skipped and logged.
func (s *RedisRotationStore) Load(ctx context.Context) (map[string]time.Time, error) {
	fields, err := s.cache.Client().HGetAll(ctx, rotationKey).Result()
	if err != nil {
		return nil, scanerrors.NewCacheError("load rotation state", err)
	}

	entries := make(map[string]time.Time, len(fields))
	for symbol, raw := range fields {
		surfacedAt, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr != nil {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"symbol": symbol,
				"value":  raw,
			}).Warn("Skipping rotation entry with bad timestamp")
			continue
		}
		entries[symbol] = surfacedAt
	}
	return entries, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

const (
	cacheKeyPrefix = "hub:"
	scanBatch      = 100
)

// CacheRepository keeps JSON documents in Redis under the "hub:" namespace.
// Without a client every read misses and every write is dropped.
type CacheRepository struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{rdb: client, log: logger}
}

// Get returns ErrCacheMiss for absent keys. Entries that no longer decode are evicted
// and reported as misses.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.rdb == nil {
		return appErrors.ErrCacheMiss
	}
	k := cacheKeyPrefix + key

	raw, err := r.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache read %q: %w", key, err)
	}
	if jsonErr := json.Unmarshal(raw, dest); jsonErr != nil {
		r.log.Warn("evicting undecodable cache entry", zap.String("key", key), zap.Error(jsonErr))
		r.rdb.Del(ctx, k)
		return appErrors.ErrCacheMiss
	}
	return nil
}

func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.rdb == nil {
		return nil
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	return r.rdb.Set(ctx, cacheKeyPrefix+key, doc, ttl).Err()
}

// DeleteByPattern unlinks every key matching the glob, one scan page per round trip.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.rdb == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, cacheKeyPrefix+pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("cache scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache unlink %q: %w", pattern, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping backs the optional redis readiness check.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.rdb == nil {
		return errors.New("cache disabled")
	}
	return r.rdb.Ping(ctx).Err()
}

package qloo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 60 * time.Minute
	cachePrefix     = "qloo:analysis:"
)

// RedisCache caches analysis responses in redis with a TTL. Locale signals
// move slowly, so repeated campaign runs against the same demographics skip
// the vendor round trip.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the redis instance described by rawURL and
// verifies the connection with a ping.
func NewRedisCache(ctx context.Context, rawURL string, ttl time.Duration) (*RedisCache, error) {
	if rawURL == "" {
		return nil, errors.New("redis cache: URL required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: parse URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached analysis for key when present.
func (r *RedisCache) Get(ctx context.Context, key string) (Analysis, bool, error) {
	var empty Analysis
	raw, err := r.client.Get(ctx, cachePrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return empty, false, nil
		}
		return empty, false, fmt.Errorf("redis cache: get: %w", err)
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return empty, false, fmt.Errorf("redis cache: decode: %w", err)
	}
	return analysis, true, nil
}

// Set stores analysis under key with the configured TTL.
func (r *RedisCache) Set(ctx context.Context, key string, analysis Analysis) error {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("redis cache: encode: %w", err)
	}
	if err := r.client.Set(ctx, cachePrefix+key, encoded, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set: %w", err)
	}
	return nil
}

// Close releases the underlying redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

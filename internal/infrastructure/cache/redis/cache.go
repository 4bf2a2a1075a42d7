// Package redis shares cached answers between API instances through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

const (
	KeyPrefix      = "rag:"
	scanBatch      = 500
	statsTimeout   = 500 * time.Millisecond
	defaultTimeout = 2 * time.Second
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Cache never fails a lookup: Redis errors are logged and reported as misses.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(opts Options) *Cache {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return NewWithClient(client, opts.Logger)
}

func NewWithClient(client *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Get(ctx context.Context, fingerprint string) (domain.CacheEntry, bool) {
	raw, err := c.client.Get(ctx, key(fingerprint)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("response_cache_get_failed", "error", err)
		}
		c.misses.Add(1)
		return domain.CacheEntry{}, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("response_cache_decode_failed", "error", err)
		c.misses.Add(1)
		return domain.CacheEntry{}, false
	}
	c.hits.Add(1)
	return entry, true
}

func (c *Cache) Put(ctx context.Context, fingerprint string, response domain.QueryResponse, ttl time.Duration) error {
	now := time.Now().UTC()
	raw, err := json.Marshal(domain.CacheEntry{
		Fingerprint: fingerprint,
		Response:    response,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key(fingerprint), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateAll deletes every key under the cache prefix with SCAN so the
// server is never blocked by KEYS.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Stats counts keys with a bounded scan; Entries is -1 when Redis is unreachable.
func (c *Cache) Stats() domain.CacheStats {
	stats := domain.CacheStats{
		Backend: "redis",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			c.logger.Warn("response_cache_stats_failed", "error", err)
			stats.Entries = -1
			return stats
		}
		stats.Entries += len(keys)
		if next == 0 {
			return stats
		}
		cursor = next
	}
}

func key(fingerprint string) string {
	if strings.HasPrefix(fingerprint, KeyPrefix) {
		return fingerprint
	}
	return KeyPrefix + fingerprint
}

package specificity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/redis"
)

// Namespace prefixes every specificity key in Redis.
const Namespace = "specificity:"

// Cache stores oracle counts keyed by lowercased term.
type Cache interface {
	Get(ctx context.Context, term string) (count int, ok bool, err error)
	Set(ctx context.Context, term string, count int) error
	Size(ctx context.Context) (int64, error)
}

func normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

type RedisCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache persists counts in Redis. A zero ttl keeps them forever.
func NewRedisCache(client *pkgredis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "specificity-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, term string) (int, bool, error) {
	n, ok, err := c.client.Count(ctx, normalize(term))
	if err != nil {
		return 0, false, fmt.Errorf("reading cached count for %q: %w", term, err)
	}
	return n, ok, nil
}

func (c *RedisCache) Set(ctx context.Context, term string, count int) error {
	if err := c.client.SetCount(ctx, normalize(term), count, c.ttl); err != nil {
		return fmt.Errorf("caching count for %q: %w", term, err)
	}
	return nil
}

func (c *RedisCache) Size(ctx context.Context) (int64, error) {
	return c.client.Len(ctx)
}

// Invalidate drops every cached count.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	removed, err := c.client.Clear(ctx)
	if err != nil {
		return fmt.Errorf("invalidating specificity cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_removed", removed)
	return nil
}

// MemoryCache keeps counts for the life of the process.
type MemoryCache struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{counts: make(map[string]int)}
}

func (c *MemoryCache) Get(_ context.Context, term string) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.counts[normalize(term)]
	return n, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, term string, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[normalize(term)] = count
	return nil
}

func (c *MemoryCache) Size(context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.counts)), nil
}

// Package redis wraps go-redis/v9 for the summarizer's integer count caches.
// Every key a Client touches lives under its namespace, so one Redis
// database can hold several caches and each can be dropped on its own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient connects to cfg.Addr and fails fast if the server does not
// answer a PING within five seconds.
func NewClient(cfg config.RedisConfig, namespace string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb, namespace: namespace}, nil
}

func (c *Client) key(name string) string {
	return c.namespace + name
}

// Count returns the integer stored under name. ok is false when the key is
// absent; a value that is not an integer is an error.
func (c *Client) Count(ctx context.Context, name string) (n int, ok bool, err error) {
	n, err = c.rdb.Get(ctx, c.key(name)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return n, true, nil
}

// SetCount stores n under name. A zero ttl never expires.
func (c *Client) SetCount(ctx context.Context, name string, n int, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(name), n, ttl).Err()
}

// Len counts the keys in the namespace with SCAN, so it is approximate while
// writers are active.
func (c *Client) Len(ctx context.Context) (int64, error) {
	var n int64
	err := c.scan(ctx, func(keys []string) error {
		n += int64(len(keys))
		return nil
	})
	return n, err
}

// Clear unlinks every key in the namespace and returns how many it removed.
func (c *Client) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := c.scan(ctx, func(keys []string) error {
		n, err := c.rdb.Unlink(ctx, keys...).Result()
		removed += n
		return err
	})
	return removed, err
}

func (c *Client) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.namespace+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scanning %s*: %w", c.namespace, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

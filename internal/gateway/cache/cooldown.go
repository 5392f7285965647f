package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sentinel/internal/logger"
	"sentinel/internal/pkg/symbol"
)

// kv is the slice of the redis client the cooldown store needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Source answers last-trade queries when redis has no entry, usually the
// trade history table.
type Source interface {
	LastTradeTime(ctx context.Context, symbol string) (time.Time, bool, error)
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	Prefix       string
	TTL          time.Duration
}

// Cooldown keeps the last executed trade per symbol in redis so several
// sentinel instances share one cooldown window.
type Cooldown struct {
	kv       kv
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	fallback Source
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewCooldown stores entries under "<prefix>:cooldown:<SYMBOL>". A zero ttl
// keeps entries forever.
func NewCooldown(client *redis.Client, cfg RedisConfig, fallback Source) *Cooldown {
	c := newCooldown(client, cfg.Prefix, cfg.TTL, fallback)
	c.client = client
	return c
}

func newCooldown(store kv, prefix string, ttl time.Duration, fallback Source) *Cooldown {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "sentinel"
	}
	return &Cooldown{kv: store, prefix: prefix, ttl: ttl, fallback: fallback}
}

func (c *Cooldown) key(sym string) string {
	return c.prefix + ":cooldown:" + symbol.Normalize(sym)
}

func (c *Cooldown) LastTradeTime(ctx context.Context, sym string) (time.Time, bool, error) {
	raw, err := c.kv.Get(ctx, c.key(sym)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return c.fromFallback(ctx, sym)
	case err != nil:
		return time.Time{}, false, fmt.Errorf("redis get: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis cooldown value %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (c *Cooldown) fromFallback(ctx context.Context, sym string) (time.Time, bool, error) {
	if c.fallback == nil {
		return time.Time{}, false, nil
	}
	at, ok, err := c.fallback.LastTradeTime(ctx, sym)
	if err != nil || !ok {
		return at, ok, err
	}
	if err := c.MarkTrade(ctx, sym, at); err != nil {
		logger.Warnf("cooldown: warm %s: %v", sym, err)
	}
	return at, true, nil
}

// MarkTrade records an executed trade for symbol.
func (c *Cooldown) MarkTrade(ctx context.Context, sym string, at time.Time) error {
	if err := c.kv.Set(ctx, c.key(sym), strconv.FormatInt(at.UnixMilli(), 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Cooldown) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

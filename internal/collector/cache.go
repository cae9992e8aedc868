package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"MASentinel/internal/model"

	"github.com/redis/go-redis/v9"
)

// Store is a time-bounded key/value cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements Store on a Redis server.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: "masentinel:"}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// CachedFetcher serves bars from Store when present and fills it on miss.
// Cache failures never fail a fetch.
type CachedFetcher struct {
	Next  Fetcher
	Store Store
	TTL   time.Duration
}

func (c *CachedFetcher) Name() string { return c.Next.Name() + "+cache" }

func barsKey(symbol string, tf model.Timeframe) string {
	return fmt.Sprintf("bars:%s:%s", symbol, tf)
}

func (c *CachedFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe) ([]model.OHLCV, error) {
	key := barsKey(symbol, tf)
	if raw, ok, err := c.Store.Get(ctx, key); err != nil {
		log.Printf("[WARN] cache get %s: %v", key, err)
	} else if ok {
		var bars []model.OHLCV
		if err := json.Unmarshal(raw, &bars); err == nil {
			return bars, nil
		}
	}

	bars, err := c.Next.FetchBars(ctx, symbol, tf)
	if err != nil || len(bars) == 0 {
		return bars, err
	}
	if raw, err := json.Marshal(bars); err == nil {
		if err := c.Store.Set(ctx, key, raw, c.TTL); err != nil {
			log.Printf("[WARN] cache set %s: %v", key, err)
		}
	}
	return bars, nil
}

// CachedNames memoizes a NameResolver in Store. Fallback names equal to
// the symbol are not cached so a later run can retry.
type CachedNames struct {
	Next  NameResolver
	Store Store
	TTL   time.Duration
}

func (c *CachedNames) ResolveName(ctx context.Context, symbol string) string {
	key := "name:" + symbol
	if raw, ok, err := c.Store.Get(ctx, key); err == nil && ok && len(raw) > 0 {
		return string(raw)
	}
	name := c.Next.ResolveName(ctx, symbol)
	if name != "" && name != symbol {
		if err := c.Store.Set(ctx, key, []byte(name), c.TTL); err != nil {
			log.Printf("[WARN] cache set %s: %v", key, err)
		}
	}
	if name == "" {
		return symbol
	}
	return name
}

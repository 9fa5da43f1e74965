package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopfront/internal/domain"
)

// product:{id} -> JSON encoded domain.Product
const keyProduct = "product:%s"

// Products caches single products by id.
type Products interface {
	Get(ctx context.Context, id string) (domain.Product, bool, error)
	Set(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
}

// Noop never holds anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (domain.Product, bool, error) {
	return domain.Product{}, false, nil
}
func (Noop) Set(context.Context, domain.Product) error { return nil }
func (Noop) Delete(context.Context, string) error      { return nil }

// Redis stores products in redis with a TTL.
type Redis struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedis(rdb redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (c *Redis) Get(ctx context.Context, id string) (domain.Product, bool, error) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(keyProduct, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, err
	}
	var p domain.Product
	if err := json.Unmarshal(b, &p); err != nil {
		return domain.Product{}, false, fmt.Errorf("decode cached product: %w", err)
	}
	return p, true, nil
}

func (c *Redis) Set(ctx context.Context, p domain.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyProduct, p.ID), b, c.ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(keyProduct, id)).Err()
}

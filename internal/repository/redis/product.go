package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/repository"
)

const keyPrefix = "product:"

// ProductCache is a cache-aside repository.ProductRepository in front of
// the catalog. Redis failures degrade to reading the catalog directly.
type ProductCache struct {
	client redis.Cmdable
	next   repository.ProductRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductCache wraps next with a Redis cache.
func NewProductCache(client redis.Cmdable, next repository.ProductRepository, ttl time.Duration, logger *slog.Logger) *ProductCache {
	return &ProductCache{client: client, next: next, ttl: ttl, logger: logger}
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// GetByIDs serves hits from Redis and loads misses from the catalog,
// writing them back with the configured TTL.
func (c *ProductCache) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	misses := ids
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "product cache read failed", slog.String("error", err.Error()))
	} else {
		misses = nil
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				misses = append(misses, ids[i])
				continue
			}
			var p domain.Product
			if err := json.Unmarshal([]byte(s), &p); err != nil {
				misses = append(misses, ids[i])
				continue
			}
			out[p.ID] = p
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := c.next.GetByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for id, p := range loaded {
		out[id] = p
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.Set(ctx, key(id), data, c.ttl)
	}
	if len(loaded) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.WarnContext(ctx, "product cache write failed", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// Invalidate drops cached entries for ids.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

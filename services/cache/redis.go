// Package cachesvc implements core.Cache on Redis, or in memory when Redis is not configured.
package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
)

// RedisCache stores values as JSON strings.
type RedisCache struct {
	*redis.Client
	prefix string
}

var _ core.Cache = (*RedisCache)(nil)

func NewRedisCache(conf *core.Config) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return &RedisCache{Client: client, prefix: conf.AppName + ":"}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	str, err := c.Client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return core.ErrCacheMiss
	} else if err != nil {
		return errors.Wrap(err, "reading cache")
	}
	return errors.Wrap(json.Unmarshal([]byte(str), dest), "decoding cached value")
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding cached value")
	}
	return errors.Wrap(c.Client.Set(ctx, c.prefix+key, data, ttl).Err(), "writing cache")
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, c.prefix+k)
	}
	return errors.Wrap(c.Client.Del(ctx, prefixed...).Err(), "deleting cache keys")
}

// Ping checks the connection; used at startup.
func (c *RedisCache) Ping(ctx context.Context) error {
	return errors.Wrap(c.Client.Ping(ctx).Err(), "pinging redis")
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// RedisConfig holds the connection settings of the shared cache
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" default:"truthline"`
}

// Connect opens a redis client and pings it
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisStore is a Store backed by redis. Values are stored as JSON under
// "<prefix>:<namespace>:<key>".
type RedisStore[V any] struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store for one namespace on a shared client
func NewRedisStore[V any](client redis.UniversalClient, prefix, namespace string) *RedisStore[V] {
	return &RedisStore[V]{client: client, prefix: prefix + ":" + namespace}
}

// Get implements Store
func (c *RedisStore[V]) Get(ctx context.Context, key string) (V, error) {
	var v V
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, ErrMiss
		}
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Set implements Store
func (c *RedisStore[V]) Set(ctx context.Context, key string, v V, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.wrapKey(key), data, ttl).Err()
}

// Clear removes every key of the namespace
func (c *RedisStore[V]) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisStore[V]) wrapKey(key string) string {
	return c.prefix + ":" + key
}

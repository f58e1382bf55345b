// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by HashStore.HGet when the field does not exist.
var ErrNotFound = errors.New("cache: not found")

// HashStore is the subset of hash operations the game state lives on.
type HashStore interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key string, fields ...string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// ConnectRedis opens a client against addr/db and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisHashStore implements HashStore on a Redis client.
type RedisHashStore struct {
	rdb *redis.Client
}

// NewRedisHashStore wraps rdb.
func NewRedisHashStore(rdb *redis.Client) *RedisHashStore {
	return &RedisHashStore{rdb: rdb}
}

func (s *RedisHashStore) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis HGET %s/%s: %w", key, field, err)
	}
	return v, nil
}

func (s *RedisHashStore) HSet(ctx context.Context, key, field, value string) error {
	if err := s.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("redis HSET %s/%s: %w", key, field, err)
	}
	return nil
}

func (s *RedisHashStore) HDel(ctx context.Context, key string, fields ...string) error {
	if err := s.rdb.HDel(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("redis HDEL %s: %w", key, err)
	}
	return nil
}

func (s *RedisHashStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	return m, nil
}

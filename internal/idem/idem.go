// Package idem remembers which client-supplied request keys have already
// produced a result.
package idem

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pending marks a key whose request is still running.
const Pending = "pending"

type Store interface {
	// Claim reserves key. It returns false when the key is already taken.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Complete records the result of a claimed key.
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	// Lookup returns the stored value, or "" when the key is unknown.
	Lookup(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "idem:"}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+key, Pending, ttl).Result()
}

func (s *RedisStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+key, result, ttl).Err()
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by the service
const DefaultRedisPrefix = "certstudio"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisBackend implements Backend on Redis using one key prefix per profile.
// Keys are "<prefix>:<profile>:<key>".
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to Redis and verifies connectivity
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisBackendWithClient(client, cfg.Prefix), nil
}

// NewRedisBackendWithClient wraps an existing client
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) namespace(profileID string) string {
	return fmt.Sprintf("%s:%s:", b.prefix, profileID)
}

// For returns the store of profileID
func (b *RedisBackend) For(profileID string) Store {
	return &redisStore{client: b.client, ns: b.namespace(profileID)}
}

// Clear removes all keys with the profile prefix
func (b *RedisBackend) Clear(ctx context.Context, profileID string) error {
	pattern := b.namespace(profileID) + "*"

	var cursor uint64
	var keysDeleted int
	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := b.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
			keysDeleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Info("profile preferences cleared", "profile", profileID, "keys_deleted", keysDeleted)
	return nil
}

// Ping verifies Redis connectivity
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

type redisStore struct {
	client *redis.Client
	ns     string
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, err := s.client.Get(ctx, s.ns+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.client.Set(ctx, s.ns+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

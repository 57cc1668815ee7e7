package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tess:dossier:"

// RedisStorage implements Storage interface on Redis string keys
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage connects to the Redis instance at url and pings it
func NewRedisStorage(url string) (*RedisStorage, error) {
	if url == "" {
		return nil, errors.New("REDIS_URL is required for redis storage")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStorageWithClient(client), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: redisKeyPrefix}
}

func (s *RedisStorage) redisKey(key string) string {
	return s.prefix + objectName(key)
}

// Upload stores an object under its prefixed key without expiry
func (s *RedisStorage) Upload(ctx context.Context, key string, data io.Reader) (string, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	storagePath := s.redisKey(key)
	if err := s.client.Set(ctx, storagePath, payload, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to write to redis: %w", err)
	}
	return storagePath, nil
}

// Download retrieves an object from Redis
func (s *RedisStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	payload, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// Delete removes an object from Redis
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List scans the key prefix and returns the stored keys in lexical order
func (s *RedisStorage) List(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		name := strings.TrimPrefix(iter.Val(), s.prefix)
		if key, ok := keyFromObject(name); ok {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the underlying connection pool
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

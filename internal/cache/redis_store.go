package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// redisStore persists engine blobs in Redis. Keys are namespaced so multiple
// engine instances can share one database. Values never expire; the engine
// deletes keys explicitly when records are removed.
type redisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisBlobStore(client *redis.Client, prefix string, logger *slog.Logger) BlobStore {
	if prefix == "" {
		prefix = "attempt-engine"
	}
	return &redisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *redisStore) key(key string) string {
	return r.prefix + ":" + key
}

func (r *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.logger.Error("Failed to persist blob", "key", key, "error", err)
		return err
	}
	return nil
}

func (r *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		r.logger.Error("Failed to read blob", "key", key, "error", err)
		return nil, err
	}
	return value, nil
}

func (r *redisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Error("Failed to delete blob", "key", key, "error", err)
		return err
	}
	return nil
}

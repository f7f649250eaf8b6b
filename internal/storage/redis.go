package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jwebster45206/npc-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "snapshot:"
	snapshotIndexKey  = "snapshots"
)

// RedisStorage keeps snapshots in Redis and reads authored content from the
// filesystem.
type RedisStorage struct {
	*Content
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to redisURL ("redis://host:port/db").
func NewRedisStorage(redisURL string, content *Content, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisStorage{
		Content: content,
		client:  redis.NewClient(opt),
		logger:  logger,
	}, nil
}

// Client exposes the underlying connection for components that share it.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := range maxRetries {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) SaveSnapshot(ctx context.Context, slot string, data []byte) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, snapshotKeyPrefix+slot, data, 0)
		pipe.SAdd(ctx, snapshotIndexKey, slot)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save snapshot", "slot", slot, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSnapshot(ctx context.Context, slot string) ([]byte, error) {
	data, err := r.client.Get(ctx, snapshotKeyPrefix+slot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("snapshot %q: %w", slot, storage.ErrNotFound)
		}
		r.logger.Error("Failed to load snapshot", "slot", slot, "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) DeleteSnapshot(ctx context.Context, slot string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, snapshotKeyPrefix+slot)
		pipe.SRem(ctx, snapshotIndexKey, slot)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete snapshot", "slot", slot, "error", err)
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListSnapshots(ctx context.Context) ([]string, error) {
	slots, err := r.client.SMembers(ctx, snapshotIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	sort.Strings(slots)
	return slots, nil
}

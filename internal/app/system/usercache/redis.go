package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const keyPrefix = "eventhub:user:"

// Redis is a Cache shared between instances. Values are JSON-encoded
// summaries stored with the configured TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient connects to Redis and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis client connected", zap.String("addr", addr))
	return rdb, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func key(id primitive.ObjectID) string {
	return keyPrefix + id.Hex()
}

func (r *Redis) Get(ctx context.Context, id primitive.ObjectID) (models.UserSummary, bool, error) {
	raw, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.UserSummary{}, false, nil
	}
	if err != nil {
		return models.UserSummary{}, false, fmt.Errorf("usercache get: %w", err)
	}
	var s models.UserSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt value is treated as a miss and dropped.
		r.logger.Warn("usercache: discarding undecodable entry",
			zap.String("user_id", id.Hex()), zap.Error(err))
		_ = r.client.Del(ctx, key(id)).Err()
		return models.UserSummary{}, false, nil
	}
	return s, true, nil
}

func (r *Redis) Set(ctx context.Context, s models.UserSummary) error {
	if r.ttl <= 0 {
		return nil
	}
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(s.ID), body, r.ttl).Err(); err != nil {
		return fmt.Errorf("usercache set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, id primitive.ObjectID) error {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("usercache invalidate: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/circleapp/circle/pkg/logging"
)

// Redis is the Store implementation for multi-instance deployments.
// Namespace defaults and expiry are delegated to Redis TTLs; failures
// are logged and reported as misses, never as errors.
type Redis struct {
	client *redis.Client
	ttls   TTLs
	logger *zap.Logger
}

// NewRedis creates a Redis-backed store and verifies the connection.
func NewRedis(url string, ttls TTLs) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &Redis{
		client: client,
		ttls:   ttls,
		logger: logging.WithComponent("cache-redis"),
	}, nil
}

func (r *Redis) namespaceKey(ns Namespace, key string) string {
	return "circle:" + string(ns) + ":" + key
}

// Get returns the cached value, or a miss on any backend failure.
func (r *Redis) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.namespaceKey(ns, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set stores value under key. ttl <= 0 selects the namespace default.
func (r *Redis) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.ttls[ns]
	}
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, r.namespaceKey(ns, key), value, ttl).Err(); err != nil {
		r.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a single key.
func (r *Redis) Delete(ctx context.Context, ns Namespace, key string) {
	if err := r.client.Del(ctx, r.namespaceKey(ns, key)).Err(); err != nil {
		r.logger.Warn("Cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePrefix removes every key in ns starting with prefix.
func (r *Redis) DeletePrefix(ctx context.Context, ns Namespace, prefix string) {
	r.scanDelete(ctx, r.namespaceKey(ns, prefix)+"*")
}

// Clear removes every key in ns.
func (r *Redis) Clear(ctx context.Context, ns Namespace) {
	r.scanDelete(ctx, r.namespaceKey(ns, "")+"*")
}

func (r *Redis) scanDelete(ctx context.Context, pattern string) {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("Cache delete failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("Cache scan failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Health checks Redis health.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

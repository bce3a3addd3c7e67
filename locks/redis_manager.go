package locks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

const defaultLockTTL = 10 * time.Minute

// releaseScript deletes the key only when this owner still holds it
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisManager implements cross-process locking with Redis SET NX and an owner token
type RedisManager struct {
	client  redis.UniversalClient
	logger  *zap.Logger
	ttl     time.Duration
	ownerID string // Unique identifier for this lock manager instance
}

// NewRedisManager creates a new Redis-based lock manager
func NewRedisManager(ctx context.Context, redisAddr, redisPassword string, ttl time.Duration, logger *zap.Logger) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           0, // Default DB
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, metadata.Connection("failed to connect to Redis at "+redisAddr, err)
	}

	return NewRedisManagerWithClient(client, ttl, logger)
}

// NewRedisManagerWithClient wraps an existing Redis client
func NewRedisManagerWithClient(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) (*RedisManager, error) {
	if ttl <= 0 {
		// Sync runs can be long; the TTL only guards against crashed holders
		ttl = defaultLockTTL
	}

	// Generate unique owner ID for this instance
	ownerBytes := make([]byte, 16)
	if _, err := rand.Read(ownerBytes); err != nil {
		return nil, fmt.Errorf("failed to generate owner ID: %w", err)
	}

	return &RedisManager{
		client:  client,
		logger:  logger,
		ttl:     ttl,
		ownerID: hex.EncodeToString(ownerBytes),
	}, nil
}

func lockKey(key string) string {
	return "datarepo:lock:" + key
}

// Acquire attempts to acquire a lock for the given key
func (m *RedisManager) Acquire(ctx context.Context, key string) (bool, error) {
	// SET with NX (only if not exists) and an expiration, valued with this owner
	acquired, err := m.client.SetNX(ctx, lockKey(key), m.ownerID, m.ttl).Result()
	if err != nil {
		metrics.LockOperationsTotal.WithLabelValues("acquire", "failure").Inc()
		return false, metadata.Connection("failed to acquire lock for key "+key, err)
	}

	if acquired {
		metrics.LockOperationsTotal.WithLabelValues("acquire", "success").Inc()
		m.logger.Debug("Lock acquired",
			zap.String("key", key),
			zap.String("owner", m.ownerID),
			zap.Duration("ttl", m.ttl))
	} else {
		metrics.LockOperationsTotal.WithLabelValues("acquire", "held").Inc()
		m.logger.Debug("Lock already held", zap.String("key", key))
	}

	return acquired, nil
}

// Release releases a previously acquired lock for the given key
func (m *RedisManager) Release(ctx context.Context, key string) error {
	deleted, err := releaseScript.Run(ctx, m.client, []string{lockKey(key)}, m.ownerID).Int64()
	if err != nil {
		metrics.LockOperationsTotal.WithLabelValues("release", "failure").Inc()
		return metadata.Connection("failed to release lock for key "+key, err)
	}
	metrics.LockOperationsTotal.WithLabelValues("release", "success").Inc()

	if deleted == 1 {
		m.logger.Debug("Lock released",
			zap.String("key", key),
			zap.String("owner", m.ownerID))
	} else {
		m.logger.Debug("Lock not owned or already released",
			zap.String("key", key),
			zap.String("owner", m.ownerID))
	}

	return nil
}

// Close closes the Redis client connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

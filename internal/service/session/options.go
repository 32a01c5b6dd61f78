package session

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	badgerDB          *badger.DB
	redisClient       *redis.Client
	redisTTL          time.Duration
	maxStoredMessages int
}

// WithBadgerDB sets the database used by the badger store.
func WithBadgerDB(db *badger.DB) StoreOption {
	return func(c *storeConfig) {
		c.badgerDB = db
	}
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithMaxStoredMessages caps the per-session message history kept by any driver.
func WithMaxStoredMessages(n int) StoreOption {
	return func(c *storeConfig) {
		c.maxStoredMessages = n
	}
}

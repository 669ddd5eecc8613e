package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreClosed is returned when a closed RedisStore is used.
var ErrStoreClosed = errors.New("redis store closed")

// RedisConfig holds Redis connection configuration for inbox storage.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for inbox lists (default: "devkit:inbox:").
	Prefix string
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

const defaultRedisPrefix = "devkit:inbox:"

// RedisStore hands out Redis-backed inboxes that share one client.
// Each inbox is a list under prefix+agentName.
type RedisStore struct {
	client *redis.Client
	prefix string
	mu     sync.RWMutex
	closed bool
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client. Useful with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Inbox returns the inbox for the named agent. Envelopes left over from a
// previous run under the same key are discarded.
func (s *RedisStore) Inbox(ctx context.Context, name string) (*RedisInbox, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	key := s.prefix + name
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("reset inbox %s: %w", name, err)
	}
	return &RedisInbox{store: s, key: key}, nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// RedisInbox is an Inbox stored as a Redis list (RPUSH / LPOP).
type RedisInbox struct {
	store *RedisStore
	key   string
}

// Key returns the Redis key backing this inbox.
func (q *RedisInbox) Key() string { return q.key }

// Put appends msg to the list.
func (q *RedisInbox) Put(ctx context.Context, msg *Message) error {
	if err := q.store.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.store.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push envelope: %w", err)
	}
	return nil
}

// Get pops the head of the list.
func (q *RedisInbox) Get(ctx context.Context) (*Message, error) {
	if err := q.store.checkOpen(); err != nil {
		return nil, err
	}
	data, err := q.store.client.LPop(ctx, q.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInboxEmpty
		}
		return nil, fmt.Errorf("pop envelope: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &msg, nil
}

// Len returns the list length.
func (q *RedisInbox) Len(ctx context.Context) (int, error) {
	if err := q.store.checkOpen(); err != nil {
		return 0, err
	}
	n, err := q.store.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("inbox length: %w", err)
	}
	return int(n), nil
}

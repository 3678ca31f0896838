// Package locks provides per-key try-locks used to keep a schedule from running twice at once.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/plx/internal/shared"
)

// Locker acquires a lock without waiting. When ok is false the key is held elsewhere and unlock is nil.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// KeyedMutex is an in-process [Locker].
type KeyedMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{held: map[string]struct{}{}}
}

func (m *KeyedMutex) TryLock(_ context.Context, key string) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.held[key]; busy {
		return nil, false, nil
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, true, nil
}

// Held reports whether key is currently locked.
func (m *KeyedMutex) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

const keyPrefix = "plx:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a [Locker] shared by every process pointing at the same Redis.
//
// Leases expire after ttl so a crashed holder cannot block a schedule forever.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisLocker creates a [RedisLocker]. A non-positive ttl defaults to 30 minutes.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *log.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	if key == "" {
		return nil, false, errors.New("lock key cannot be empty")
	}

	redisKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && l.logger != nil {
				l.logger.Warn("failed to release lock; it will expire", "key", key, "err", err)
			}
		})
	}, true, nil
}

// New builds the [Locker] selected by cfg.
func New(cfg shared.LocksConfig, logger *log.Logger) (Locker, func() error, error) {
	switch cfg.Backend {
	case "", shared.LockBackendMemory:
		return NewKeyedMutex(), func() error { return nil }, nil
	case shared.LockBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisLocker(client, cfg.TTL, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown lock backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

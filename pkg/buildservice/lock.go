package buildservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BuildLocker keeps ExecuteBuild calls for the same build id from
// overlapping (spec.md §9's concurrent-execute-build open question):
// Lock on an id that is already held returns an error at once rather
// than waiting. Unlock must be called exactly once per successful Lock.
type BuildLocker interface {
	Lock(ctx context.Context, buildID string) (unlock func(), err error)
}

// RedisLocker implements BuildLocker with a SetNX/Del advisory lock,
// safe across multiple build-service instances.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker builds a RedisLocker. A non-positive ttl defaults to
// 5 minutes, comfortably longer than any single build's expected runtime.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Lock acquires the advisory lock for buildID or returns an error if it
// is already held.
func (l *RedisLocker) Lock(ctx context.Context, buildID string) (func(), error) {
	key := "buildcore:lock:build:" + buildID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("build %s is already executing", buildID)
	}

	unlock := func() {
		// Best-effort: only delete the key if it still holds our
		// token, so a slow unlock after TTL expiry can't release a
		// different holder's lock.
		script := redis.NewScript(`
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			end
			return 0
		`)
		script.Run(context.Background(), l.client, []string{key}, token)
	}
	return unlock, nil
}

// LocalLocker is an in-process fallback used when no Redis is
// configured. It is safe for a single instance only — concurrent
// ExecuteBuild calls from different processes are not coordinated.
type LocalLocker struct {
	mu      sync.Mutex
	holders map[string]struct{}
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{holders: make(map[string]struct{})}
}

// Lock acquires buildID's in-process lock.
func (l *LocalLocker) Lock(_ context.Context, buildID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.holders[buildID]; held {
		return nil, fmt.Errorf("build %s is already executing", buildID)
	}
	l.holders[buildID] = struct{}{}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.holders, buildID)
	}, nil
}

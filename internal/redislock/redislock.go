// Package redislock serialises progress updates for a user across processes.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/progress"
)

const (
	DefaultTTL          = 30 * time.Second
	DefaultRetryBackoff = 25 * time.Millisecond
	keyPrefix           = "engprogress:lock:"
)

// release deletes the key only while it still holds our token
var release = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a progress.Locker backed by SET NX with an expiry
type Locker struct {
	rdb     *goredis.Client
	log     *logger.Logger
	ttl     time.Duration
	backoff time.Duration
}

var _ progress.Locker = (*Locker)(nil)

// Dial connects to addr and checks the connection
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// New creates a Locker. ttl bounds how long a crashed holder can block a user.
func New(rdb *goredis.Client, log *logger.Logger, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Locker{
		rdb:     rdb,
		log:     log.With("component", "redislock"),
		ttl:     ttl,
		backoff: DefaultRetryBackoff,
	}
}

// Lock polls until the key is acquired or ctx is done
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release even when the caller's context is already done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := release.Run(ctx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.log.Warn("Failed to release redis lock", "key", key, "error", err)
			}
		})
	}, nil
}

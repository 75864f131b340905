package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/factoryledger/internal/domain"
)

const releaseTimeout = 2 * time.Second

// LockGuard implements usecase.ProcessingGuard with a Redis lock per transaction id,
// so duplicate submissions are rejected across every server instance.
type LockGuard struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewLockGuard creates a new LockGuard. The lock is refreshed every ttl/2 while held,
// so ttl only bounds how long a crashed holder blocks the id.
func NewLockGuard(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *LockGuard {
	return &LockGuard{
		locker: redislock.New(client),
		prefix: "lock:tx:",
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire obtains the lock for key without waiting. The lock is kept alive until the
// returned release func is called.
func (g *LockGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := g.locker.Obtain(ctx, g.prefix+key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionInFlight, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go g.keepAlive(lock, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()

			if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				g.logger.Warn().Err(err).Str("transaction_id", key).Msg("failed to release processing lock")
			}
		})
	}, nil
}

func (g *LockGuard) keepAlive(lock *redislock.Lock, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := g.ttl / 2
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			err := lock.Refresh(ctx, g.ttl, nil)
			cancel()
			if err != nil {
				g.logger.Warn().Err(err).Str("transaction_id", key).Msg("processing lock lost")
				return
			}
		}
	}
}

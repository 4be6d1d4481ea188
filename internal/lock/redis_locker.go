package lock

import (
	"context"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/logger"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// RedisOptions настраивает распределённую блокировку.
type RedisOptions struct {
	// Expiry: время жизни блокировки, если держатель упал.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     10 * time.Second,
		Tries:      64,
		RetryDelay: 50 * time.Millisecond,
	}
}

// RedisLocker: блокировка по ключу между экземплярами сервиса (Redlock через redsync).
type RedisLocker struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

func NewRedisLocker(client redis.UniversalClient, opts RedisOptions) *RedisLocker {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultRedisOptions().Expiry
	}
	if opts.Tries < 1 {
		opts.Tries = DefaultRedisOptions().Tries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = DefaultRedisOptions().RetryDelay
	}

	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захватить блокировку "+key)
	}

	defer func() {
		// Освобождаем с отдельным контекстом: исходный мог быть уже отменён.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			logger.Log.WithFields(logrus.Fields{
				"lock_key":  key,
				"unlock_ok": ok,
			}).WithError(err).Warn("failed to release lock")
		}
	}()

	return fn(ctx)
}

package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// ErrBusy 锁已被其他实例持有
var ErrBusy = errors.New("lock is held by another instance")

// Locker 基于 Redis 的分布式互斥锁，用于保证多副本下定时任务同一时刻只跑一份
type Locker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	pool := goredis.NewPool(client)
	return &Locker{
		rs:  redsync.New(pool),
		ttl: ttl,
	}
}

// WithLock 获取锁后执行 fn，锁被占用时立即返回 ErrBusy
func (l *Locker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return ErrBusy
		}
		return err
	}
	defer mutex.UnlockContext(context.Background())

	return fn(ctx)
}

package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

const DefaultRedisTTL = 30 * time.Second

var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Redis holds a key with SET NX PX and keeps extending it while fn runs.
type Redis struct {
	log    *logger.Logger
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{
		log:    log.With("service", "RedisLocker"),
		rdb:    rdb,
		ttl:    ttl,
		prefix: "lock:",
	}
}

func (l *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis locker not initialized")
	}
	rk := l.prefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, rk, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotAcquired)
	}

	runCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(l.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-t.C:
				n, err := refreshScript.Run(runCtx, l.rdb, []string{rk}, token, l.ttl.Milliseconds()).Int()
				if err != nil {
					if runCtx.Err() != nil {
						return
					}
					l.log.Warn("lock refresh failed", "key", key, "error", err)
					continue
				}
				if n == 0 {
					l.log.Error("lock lost; cancelling run", "key", key)
					cancel()
					return
				}
			}
		}
	}()

	runErr := fn(runCtx)
	cancel()
	<-stopped

	relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer relCancel()
	if _, err := releaseScript.Run(relCtx, l.rdb, []string{rk}, token).Int(); err != nil {
		l.log.Warn("lock release failed; key expires on its own", "key", key, "error", err)
	}
	return runErr
}

package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/markupsync/internal/config"
	"github.com/yungbote/markupsync/internal/platform/lock"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

// chooseLocker picks the run lock backend. "auto" prefers Redis, then Postgres advisory
// locks, then an in-process lock for databases without advisory locks.
func chooseLocker(log *logger.Logger, cfg *config.Configuration, rdb *goredis.Client, db *gorm.DB) (lock.Locker, error) {
	mode := cfg.Ingest.Locker
	if mode == "auto" {
		switch {
		case rdb != nil:
			mode = "redis"
		case db != nil && db.Dialector.Name() == "postgres":
			mode = "postgres"
		default:
			mode = "local"
		}
	}
	switch mode {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis locker requested but REDIS_ADDR is not set")
		}
		log.Info("Using redis run lock", "ttl", cfg.Redis.LockTTL)
		return lock.NewRedis(log, rdb, cfg.Redis.LockTTL), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres locker requested without a database")
		}
		log.Info("Using postgres advisory run lock")
		return lock.NewPGAdvisory(log, db), nil
	case "local":
		log.Warn("Using in-process run lock; concurrent processes are not serialized")
		return lock.NewLocal(), nil
	default:
		return nil, fmt.Errorf("unknown locker %q", mode)
	}
}

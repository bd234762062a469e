package lock

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

// PGAdvisory uses a session-level Postgres advisory lock pinned to one pooled connection.
type PGAdvisory struct {
	log *logger.Logger
	db  *gorm.DB
}

func NewPGAdvisory(log *logger.Logger, db *gorm.DB) *PGAdvisory {
	return &PGAdvisory{log: log.With("service", "PGAdvisoryLocker"), db: db}
}

func (l *PGAdvisory) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("advisory locker not initialized")
	}
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var ok bool
		if err := conn.Raw("SELECT pg_try_advisory_lock(hashtext(?))", key).Scan(&ok).Error; err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if !ok {
			return fmt.Errorf("%s: %w", key, ErrNotAcquired)
		}
		defer func() {
			var released bool
			err := conn.WithContext(context.WithoutCancel(ctx)).
				Raw("SELECT pg_advisory_unlock(hashtext(?))", key).
				Scan(&released).Error
			if err != nil || !released {
				l.log.Warn("advisory unlock failed", "key", key, "released", released, "error", err)
			}
		}()
		return fn(ctx)
	})
}

package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/markupsync/internal/clients/redis"
	"github.com/yungbote/markupsync/internal/config"
	"github.com/yungbote/markupsync/internal/platform/authapi"
	"github.com/yungbote/markupsync/internal/platform/gcp"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type Clients struct {
	Store   *gcp.Store
	Redis   *goredis.Client
	AuthAPI *authapi.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Configuration) (*Clients, error) {
	log.Info("Wiring clients...")

	store, err := resolveObjectStore(ctx, log, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Redis is optional; without it runs lock through Postgres.
	rdb, err := redis.NewClient(log, cfg.Redis.Client())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var auth *authapi.Client
	if strings.TrimSpace(cfg.AuthAPI.URL) != "" {
		auth, err = authapi.NewClient(log, cfg.AuthAPI.Client())
		if err != nil {
			_ = store.Close()
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, fmt.Errorf("init auth api client: %w", err)
		}
	}

	return &Clients{Store: store, Redis: rdb, AuthAPI: auth}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

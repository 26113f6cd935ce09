package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/redisx"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime/bus"
)

// Clients holds optional external connections. All fields are nil when
// REDIS_ADDR is unset and the process runs as a single replica.
type Clients struct {
	Redis  *goredis.Client
	SSEBus bus.Bus
	Locker *redisx.Locker
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR unset; realtime events stay in-process")
		return Clients{}, nil
	}

	rdb, err := redisx.NewClient(ctx, cfg.RedisAddr, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
	}
	return Clients{
		Redis:  rdb,
		SSEBus: b,
		Locker: redisx.NewLocker(rdb, "assessment:recompute:", cfg.RecomputeTTL),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

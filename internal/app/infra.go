package app

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/zhao0294/cst8919-assignment1/internal/config"
	"github.com/zhao0294/cst8919-assignment1/internal/logger"
	"github.com/zhao0294/cst8919-assignment1/internal/redis"
)

type Infra struct {
	// Redis is nil when no REDIS_ADDR is configured.
	Redis *redis.Client
	// ProviderHTTP bounds every call made to the identity provider.
	ProviderHTTP *http.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.HTTPClientTimeout

	infra := &Infra{ProviderHTTP: httpClient}

	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, activity stream disabled", nil)
		return infra, nil
	}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	infra.Redis = redisClient

	logger.Info("redis ready", map[string]any{
		"addr":   cfg.RedisAddr,
		"stream": cfg.ActivityStream,
	})

	return infra, nil
}

func (i *Infra) Close() error {
	if i.Redis != nil {
		return i.Redis.Close()
	}
	return nil
}

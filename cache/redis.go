package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dcwiz/appkit/config"
)

const (
	poolSize            = 20
	healthCheckInterval = 30 * time.Second
)

var (
	redisMu      sync.Mutex
	redisClients = map[string]*redis.Client{}
)

// NewRedis creates a Redis client from redis.host/port/db/password config,
// defaulting to localhost:6379/0. The pool holds at most 20 connections and
// the connection is pinged on creation.
func NewRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(optionsFromConfig(cfg))
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	go healthCheck(client)
	return client, nil
}

// Redis returns the process-wide client for the configured target, creating
// it on first use. Creation is guarded by a lock; clients are keyed by
// address so distinct targets get distinct pools.
func Redis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts := optionsFromConfig(cfg)

	redisMu.Lock()
	defer redisMu.Unlock()
	if client, ok := redisClients[opts.Addr]; ok {
		return client, nil
	}
	client, err := NewRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	redisClients[opts.Addr] = client
	return client, nil
}

func optionsFromConfig(cfg *config.Config) *redis.Options {
	host := cfg.String("redis.host", "localhost")
	port := cfg.Int("redis.port", 6379)
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		DB:       cfg.Int("redis.db", 0),
		Password: cfg.String("redis.password", ""),
		PoolSize: poolSize,
	}
}

// healthCheck pings the client every 30 seconds so dead connections are
// noticed between requests. Failures are logged, not fatal.
func healthCheck(client *redis.Client) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis health check failed")
		}
		cancel()
	}
}

// Package redis provides the Redis client shared by state, the admin
// registry, toggles, rate limiting and the job queue.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/anime-bot/pkg/config"
)

const pingTimeout = 3 * time.Second

// Client is an instrumented go-redis client that remembers its settings so
// the job queue can open its own connections to the same server.
type Client struct {
	*redis.Client
	cfg config.RedisConfig
}

// New connects with cfg and pings the server before returning.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.IdleTimeout,
		MaxRetries:      cfg.MaxRetries,
	})
	rdb.AddHook(MetricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr, err)
	}

	return &Client{Client: rdb, cfg: cfg}, nil
}

// QueueOpt returns asynq connection options for the same server and database.
func (c *Client) QueueOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.cfg.Addr,
		Password: c.cfg.Password,
		DB:       c.cfg.DB,
		PoolSize: c.cfg.PoolSize,
	}
}

func (c *Client) Close() error {
	return c.Client.Close()
}

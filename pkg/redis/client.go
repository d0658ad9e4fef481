package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotConfigured  = errors.New("redis: REDIS_URL not configured")
	errNotInitialized = errors.New("redis: client not initialized")
)

// Config holds Redis connection configuration
type Config struct {
	URL      string // redis://host:port/db, or rediss:// for TLS
	Password string // overrides the password embedded in URL
	PoolSize int
}

// Connect opens a client for the upload and rate limit counters and waits
// for the first PING. The caller owns the client and closes it.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	// ParseURL enables TLS for rediss:// and reads user, password and db
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = cfg.PoolSize
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}
	return client, nil
}

// HealthCheck returns a dependency check that PINGs client.
func HealthCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errNotInitialized
		}
		return client.Ping(ctx).Err()
	}
}

package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/escrow-ledger/internal/logger"
)

// NewRedisClient подключается к Redis по URL вида redis://host:port/db.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: некорректный URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: не удалось подключиться: %w", err)
	}

	logger.Log.WithField("addr", opts.Addr).Info("redis connected")
	return client, nil
}

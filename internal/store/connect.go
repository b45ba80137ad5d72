package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Connect returns a RedisStore when redisURL is set and reachable, and a
// MemoryStore otherwise. A bad or unreachable Redis is logged, not fatal.
func Connect(ctx context.Context, redisURL string, retry RetryConfig, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	raw := strings.TrimSpace(redisURL)
	if raw == "" {
		logger.Info("redis url not configured, using in-memory store")
		return NewMemoryStore()
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory store", slog.String("error", err.Error()))
		return NewMemoryStore()
	}
	client := redis.NewClient(opts)
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			logger.Debug("redis ping failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
		}
	}
	err = RetryWithBackoff(ctx, retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		logger.Warn("redis not reachable, using in-memory store",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()),
		)
		return NewMemoryStore()
	}
	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return NewRedisStore(client)
}

package store

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryConfig bounds how long startup waits for Redis before falling back
// to the in-memory store.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// OnRetry, when set, is called before each wait with the failed attempt
	// number (starting at 1) and the delay about to be slept.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig waits roughly 250ms, 500ms and 1s between four pings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryWithBackoff calls fn until it succeeds, returns a permanent error or
// runs out of attempts. Waits grow by Multiplier with ±25% jitter.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= attempts || !retryableRedisError(err) {
			return err
		}

		wait := min(jitter(delay), cfg.MaxDelay)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, wait, err)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}
}

func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.75 + rand.Float64()*0.5))
}

// retryableRedisError reports whether a failed ping may succeed later: the
// server is not up yet, still loading its dataset, or the pool is saturated.
// Auth and protocol errors are permanent.
func retryableRedisError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, redis.ErrPoolTimeout):
		return true
	case redis.HasErrorPrefix(err, "LOADING"), redis.HasErrorPrefix(err, "BUSY"):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

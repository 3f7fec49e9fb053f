package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbuilders/payment-gateway/internal/errors"

	redis "github.com/redis/go-redis/v9"
)

type LimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter bounds failed verification attempts per (chainTxRef, address) pair
// so the bcrypt cost factor stays the dominant brute-force barrier. It is
// best-effort: when redis is unreachable the check is skipped, not failed.
type Limiter struct {
	config *LimiterConfig
	redis  *redis.Client
	log    *slog.Logger
}

func NewLimiter(config *LimiterConfig, client *redis.Client) *Limiter {
	return &Limiter{
		config: config,
		redis:  client,
		log:    slog.With("component", "verify-limiter"),
	}
}

func (l *Limiter) key(chainTxRef, address string) string {
	return fmt.Sprintf("verify-attempts:%s:%s", chainTxRef, address)
}

// Allow fails with Forbidden once the caller has exhausted its attempts
// within the window.
func (l *Limiter) Allow(ctx context.Context, chainTxRef, address string) error {
	attempts, err := l.redis.Get(ctx, l.key(chainTxRef, address)).Int()
	if err != nil && err != redis.Nil {
		l.log.Error("couldn't read attempt counter", "error", err)
		return nil
	}

	if attempts >= l.config.MaxAttempts {
		return errors.New(errors.CodeForbidden,
			"too many verification attempts, retry later")
	}

	return nil
}

// RecordFailure bumps the attempt counter, starting the window on the first
// failure.
func (l *Limiter) RecordFailure(ctx context.Context, chainTxRef, address string) {
	key := l.key(chainTxRef, address)

	attempts, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.log.Error("couldn't bump attempt counter", "error", err)
		return
	}

	if attempts == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			l.log.Error("couldn't set attempt counter TTL", "error", err)
		}
	}
}

// Reset clears the counter after a successful verification.
func (l *Limiter) Reset(ctx context.Context, chainTxRef, address string) {
	if err := l.redis.Del(ctx, l.key(chainTxRef, address)).Err(); err != nil {
		l.log.Error("couldn't reset attempt counter", "error", err)
	}
}

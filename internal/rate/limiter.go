package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds per-IP throttle budgets. A zero Max disables that throttle.
type Config struct {
	Prefix string

	MaxNewSessions   int
	NewSessionWindow time.Duration

	MaxRejections   int
	RejectionWindow time.Duration
}

// Limiter enforces per-IP fixed-window budgets on session creation and on rejected
// session tokens using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "wcs"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckNewSession counts one cart creation by ip and fails once the window budget is
// spent.
func (l *Limiter) CheckNewSession(ctx context.Context, ip string) error {
	if l == nil || l.config.MaxNewSessions <= 0 || ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.newSessionKey(ip), l.config.NewSessionWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxNewSessions) {
		return ErrRateLimited
	}
	return nil
}

// CheckRejections fails when ip has sent more invalid session tokens than allowed in
// the current window. It does not count the request itself.
func (l *Limiter) CheckRejections(ctx context.Context, ip string) error {
	if l == nil || l.config.MaxRejections <= 0 || ip == "" {
		return nil
	}
	return l.checkCounter(ctx, l.rejectionKey(ip), l.config.MaxRejections)
}

// RecordRejection counts one invalid session token sent by ip.
func (l *Limiter) RecordRejection(ctx context.Context, ip string) error {
	if l == nil || l.config.MaxRejections <= 0 || ip == "" {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.rejectionKey(ip), l.config.RejectionWindow)
	return err
}

// Rejections returns the current rejection counter for ip.
func (l *Limiter) Rejections(ctx context.Context, ip string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.rejectionKey(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) newSessionKey(ip string) string {
	return l.config.Prefix + ":rl:new:" + ip
}

func (l *Limiter) rejectionKey(ip string) string {
	return l.config.Prefix + ":rl:rej:" + ip
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set by the first hit only.
	if count == 1 && ttl > 0 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg Config) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, New(rdb, cfg)
}

func TestCheckNewSessionBudget(t *testing.T) {
	mr, l := newLimiter(t, Config{MaxNewSessions: 2, NewSessionWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckNewSession(ctx, "203.0.113.9"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.CheckNewSession(ctx, "203.0.113.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if err := l.CheckNewSession(ctx, "203.0.113.10"); err != nil {
		t.Fatalf("other ip must have its own budget: %v", err)
	}

	if ttl := mr.TTL("wcs:rl:new:203.0.113.9"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected window ttl %v", ttl)
	}
	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckNewSession(ctx, "203.0.113.9"); err != nil {
		t.Fatalf("window should have reset: %v", err)
	}
}

func TestRejectionBudget(t *testing.T) {
	_, l := newLimiter(t, Config{Prefix: "shop", MaxRejections: 3, RejectionWindow: time.Minute})
	ctx := context.Background()
	ip := "198.51.100.1"

	for i := 0; i < 3; i++ {
		if err := l.CheckRejections(ctx, ip); err != nil {
			t.Fatalf("check %d: %v", i+1, err)
		}
		if err := l.RecordRejection(ctx, ip); err != nil {
			t.Fatalf("record %d: %v", i+1, err)
		}
	}
	if err := l.CheckRejections(ctx, ip); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit after 3 rejections, got %v", err)
	}

	n, err := l.Rejections(ctx, ip)
	if err != nil || n != 3 {
		t.Fatalf("Rejections = %d, %v", n, err)
	}
}

func TestDisabledAndAnonymousAreNotLimited(t *testing.T) {
	_, l := newLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := l.CheckNewSession(ctx, "203.0.113.9"); err != nil {
			t.Fatalf("disabled throttle limited: %v", err)
		}
	}

	_, l = newLimiter(t, Config{MaxNewSessions: 1, NewSessionWindow: time.Minute})
	for i := 0; i < 3; i++ {
		if err := l.CheckNewSession(ctx, ""); err != nil {
			t.Fatalf("requests without an ip are not throttled: %v", err)
		}
	}

	var nilLimiter *Limiter
	if err := nilLimiter.CheckNewSession(ctx, "x"); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
}

func TestRedisFailureIsReported(t *testing.T) {
	mr, l := newLimiter(t, Config{MaxNewSessions: 1, NewSessionWindow: time.Minute})
	mr.SetError("ERR injected failure")

	if err := l.CheckNewSession(context.Background(), "203.0.113.9"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

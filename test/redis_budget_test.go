//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hwsiew/woosession"
	"github.com/hwsiew/woosession/cart"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts Redis round trips: single commands and
// pipeline calls.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) RoundTrips() int64 { return h.commands.Load() + h.pipelines.Load() }

func newCountedRedis(t *testing.T) (*redis.Client, *cmdCounter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// Warm the connection so handshake commands are not counted.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()
	return rdb, counter
}

// TestResolveRedisBudget verifies a cart read costs one GET, plus one EXPIRE when
// sliding expiration is on.
func TestResolveRedisBudget(t *testing.T) {
	rdb, counter := newCountedRedis(t)
	ctx := context.Background()

	for _, sliding := range []bool{false, true} {
		store := cart.NewRedisStore(rdb, "budget", time.Hour, sliding)
		if err := store.Persist(ctx, cart.NewSession("c1", time.Now())); err != nil {
			t.Fatalf("persist: %v", err)
		}

		counter.Reset()
		if _, err := store.Resolve(ctx, "c1"); err != nil {
			t.Fatalf("resolve: %v", err)
		}

		want := int64(1)
		if sliding {
			want = 2
		}
		if got := counter.RoundTrips(); got != want {
			t.Fatalf("sliding=%v: %d round trips, want %d", sliding, got, want)
		}
	}
}

// TestUpdateRedisBudget verifies an uncontended write costs WATCH, GET, one
// MULTI/SET/EXEC pipeline and UNWATCH.
func TestUpdateRedisBudget(t *testing.T) {
	rdb, counter := newCountedRedis(t)
	store := cart.NewRedisStore(rdb, "budget", time.Hour, false)

	_, err := store.Update(context.Background(), "c1", func(s *cart.Session) error {
		_, err := s.AddItem(cart.Item{ProductID: 1, Quantity: 1}, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := counter.pipelines.Load(); got > 1 {
		t.Fatalf("pipelines = %d, want at most 1", got)
	}
	if got := counter.RoundTrips(); got > 4 {
		t.Fatalf("update used %d round trips, want at most 4", got)
	}
}

// TestRejectedSessionTouchesNoRedis verifies invalid tokens are refused before the
// store is consulted.
func TestRejectedSessionTouchesNoRedis(t *testing.T) {
	rdb, counter := newCountedRedis(t)
	engine := newIntegrationEngine(t, rdb, integrationSecret)

	for _, op := range woosession.Operations {
		counter.Reset()
		resp := execute(t, engine, op, `{"productId":1,"quantity":1}`, "Session invalid-jwt-token-string")
		if len(resp.Errors) == 0 {
			t.Fatalf("%s: expected rejection", op)
		}
		if got := counter.RoundTrips(); got != 0 {
			t.Fatalf("%s: rejected request used %d redis round trips", op, got)
		}
	}
}

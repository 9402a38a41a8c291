package woosession

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testIssuer = "https://shop.example"

	productShirt  = 1
	productHoodie = 2
	productMug    = 3
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte(testSecret)
	cfg.Token.Issuer = testIssuer
	cfg.Metrics.Enabled = true
	return cfg
}

func testCatalog() *StaticCatalog {
	return NewStaticCatalog(
		Product{ID: productShirt, Name: "T-Shirt", Price: 1800, InStock: true},
		Product{
			ID:      productHoodie,
			Name:    "Hoodie",
			Price:   4500,
			InStock: true,
			Variations: []Variation{
				{ID: 21, Attributes: map[string]string{"size": "M"}, InStock: true},
				{ID: 22, Attributes: map[string]string{"size": "XL"}, Price: 5000, InStock: true},
				{ID: 23, Attributes: map[string]string{"size": "S"}, InStock: false},
			},
		},
		Product{ID: productMug, Name: "Mug", Price: 900, InStock: false},
	)
}

func testCoupons() *StaticCoupons {
	return NewStaticCoupons(
		Coupon{Code: "TENOFF", DiscountType: "percent", Amount: 10},
		Coupon{Code: "fiver", DiscountType: "fixed_cart", Amount: 500},
	)
}

type engineOption func(*Builder)

func withTestRedis(rdb redis.UniversalClient) engineOption {
	return func(b *Builder) { b.WithRedis(rdb) }
}

func withTestClock(c *testClock) engineOption {
	return func(b *Builder) { b.withClock(c.Now) }
}

func withTestConfig(cfg Config) engineOption {
	return func(b *Builder) { b.WithConfig(cfg) }
}

func newCartEngine(t *testing.T, opts ...engineOption) *Engine {
	t.Helper()

	b := New().
		WithConfig(testConfig()).
		WithCatalog(testCatalog()).
		WithCoupons(testCoupons())
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// Command woosession-loadtest drives cart reads and writes through an engine backed
// by Redis (or miniredis) and prints latency percentiles per phase.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hwsiew/woosession"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type sessionState struct {
	header string
	mu     sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of guest sessions to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (cart read + add)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "wcs", "cart key prefix")
		verbose     = flag.Bool("v", false, "log engine activity")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := woosession.DefaultConfig()
	cfg.Token.Secret = []byte("loadtest-secret-0123456789abcdef")
	cfg.Token.Issuer = "https://loadtest.local"
	cfg.Store.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := woosession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logger).
		WithCatalog(woosession.NewStaticCatalog(
			woosession.Product{ID: 1, Name: "T-Shirt", Price: 1800, InStock: true},
			woosession.Product{ID: 2, Name: "Mug", Price: 900, InStock: true},
		)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		resp := engine.Execute(ctx, woosession.Request{
			Operation: woosession.OpAddToCart,
			Variables: json.RawMessage(`{"productId":1,"quantity":1}`),
		})
		token := resp.Header.Get(engine.HeaderName())
		if len(resp.Errors) != 0 || token == "" {
			fmt.Fprintf(os.Stderr, "seed failed: %+v\n", resp.Errors)
			os.Exit(1)
		}
		states[i].header = woosession.SessionPrefix + token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	readStats := runPhase(ctx, engine, states, *ops, *concurrency, woosession.OpCart, nil)
	addStats := runPhase(ctx, engine, states, *ops, *concurrency, woosession.OpAddToCart,
		json.RawMessage(`{"productId":2,"quantity":1}`))

	fmt.Println("---- results ----")
	printStats("cart", readStats)
	printStats("addToCart", addStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("sessions: accepted=%d refreshed=%d established=%d store_failures=%d\n",
		snap.Counters[woosession.MetricSessionAccepted],
		snap.Counters[woosession.MetricSessionRefreshed],
		snap.Counters[woosession.MetricSessionEstablished],
		snap.Counters[woosession.MetricStoreFailure],
	)
}

// runPhase executes op against random sessions. Each session's header is replaced by
// the refreshed token the engine returns, as a browser client would.
func runPhase(ctx context.Context, engine *woosession.Engine, states []sessionState, ops, concurrency int, op string, vars json.RawMessage) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				req := woosession.Request{
					Operation: op,
					Variables: vars,
					Header:    map[string][]string{},
				}
				req.Header.Set(engine.HeaderName(), state.header)

				t0 := time.Now()
				resp := engine.Execute(ctx, req)
				d := time.Since(t0)

				if token := resp.Header.Get(engine.HeaderName()); token != "" {
					state.header = woosession.SessionPrefix + token
				}
				if len(resp.Errors) != 0 {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

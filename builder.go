package woosession

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hwsiew/woosession/cart"
	internalaudit "github.com/hwsiew/woosession/internal/audit"
	"github.com/hwsiew/woosession/internal/flows"
	"github.com/hwsiew/woosession/internal/rate"
	"github.com/hwsiew/woosession/jwt"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine].
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  cart.Store

	catalog   Catalog
	coupons   CouponProvider
	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores carts in Redis. Without it, and without [Builder.WithStore], carts
// live in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore plugs in a custom cart store. It takes precedence over WithRedis.
func (b *Builder) WithStore(store cart.Store) *Builder {
	b.store = store
	return b
}

// WithCatalog sets the product source used by AddToCart.
func (b *Builder) WithCatalog(c Catalog) *Builder {
	b.catalog = c
	return b
}

// WithCoupons sets the coupon source used by ApplyCoupon.
func (b *Builder) WithCoupons(c CouponProvider) *Builder {
	b.coupons = c
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. It only takes effect when Audit.Enabled is
// set in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters read by MetricsSnapshot and the exporters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the cart operation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// withClock overrides the clock used for tokens and cart timestamps. Tests only.
func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns the engine. A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		Secret: cloneBytes(cfg.Token.Secret),
		Issuer: cfg.Token.Issuer,
		TTL:    cfg.Token.TTL,
		Leeway: cfg.Token.Leeway,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}

	// -------- CART STORE --------
	store := b.store
	switch {
	case store != nil:
	case b.redis != nil:
		store = cart.NewRedisStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.TTL, cfg.Store.SlidingExpiration)
	default:
		logger.Warn("no redis client configured, carts are kept in process memory")
		store = cart.NewMemoryStore(cfg.Store.TTL, cfg.Store.SlidingExpiration)
	}

	// -------- RATE LIMITS --------
	var limiter *rate.Limiter
	throttled := cfg.RateLimit.MaxNewSessionsPerIP > 0 || cfg.RateLimit.MaxRejectionsPerIP > 0
	switch {
	case throttled && b.redis != nil:
		limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Store.RedisPrefix,
			MaxNewSessions:   cfg.RateLimit.MaxNewSessionsPerIP,
			NewSessionWindow: cfg.RateLimit.NewSessionWindow,
			MaxRejections:    cfg.RateLimit.MaxRejectionsPerIP,
			RejectionWindow:  cfg.RateLimit.RejectionWindow,
		})
	case throttled:
		logger.Warn("rate limits need a redis client and are disabled")
	}

	engine := &Engine{
		config:  cfg,
		codec:   codec,
		store:   store,
		catalog: b.catalog,
		coupons: b.coupons,
		limiter: limiter,
		logger:  logger.Named("woosession"),
		now:     now,
	}

	engine.flows = flows.New(flows.Deps{
		Authenticate: flows.AuthenticateDeps{
			Prefix: SessionPrefix,
			Decode: codec.Decode,
			CheckClaims: func(claims *jwt.Claims) error {
				return jwt.CheckClaims(claims, codec.Issuer())
			},
			NewCustomerID: newCustomerID,
			Malformed:     ErrMalformedToken,
		},
		Refresh: flows.RefreshDeps{
			Issue: codec.Issue,
		},
		Mutate: flows.MutateDeps{
			Store: store,
			StoreErrors: []error{
				cart.ErrStoreUnavailable,
				cart.ErrSessionCorrupt,
				cart.ErrUpdateConflict,
			},
		},
	})

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		EmitTimeout: time.Second,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

func newCustomerID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

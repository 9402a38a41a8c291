package woosession

import (
	"errors"
	"strings"
	"time"
)

// SessionHeader is the request and response header carrying the session token.
const SessionHeader = "woocommerce-session"

// SessionPrefix precedes the token in the request header.
const SessionPrefix = "Session "

// Config is the full engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token     TokenConfig
	Store     StoreConfig
	Metrics   MetricsConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls session token signing and validation.
type TokenConfig struct {
	// Secret is the HS256 key.
	Secret []byte
	// Issuer is the shop origin written to iss and required on every incoming token.
	Issuer string
	// TTL is the lifetime of each issued token; every accepted request re-issues one.
	TTL time.Duration
	// Leeway is the clock tolerance applied to nbf and exp.
	Leeway time.Duration
	// HeaderName overrides [SessionHeader].
	HeaderName string
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls cart persistence.
type StoreConfig struct {
	RedisPrefix       string
	TTL               time.Duration
	SlidingExpiration bool
}

// RateLimitConfig holds per-IP throttles. They need a Redis client and are ignored
// with the in-memory store. A zero Max disables that throttle.
type RateLimitConfig struct {
	// MaxNewSessionsPerIP caps how many carts one client IP may create per window.
	MaxNewSessionsPerIP int
	NewSessionWindow    time.Duration
	// MaxRejectionsPerIP caps invalid session tokens per window; past it every
	// token-bearing request from that IP is refused until the window ends.
	MaxRejectionsPerIP int
	RejectionWindow    time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the operation latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds deployment hardening switches.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Token.Secret and Token.Issuer must
// still be set before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:        48 * time.Hour,
			Leeway:     60 * time.Second,
			HeaderName: SessionHeader,
		},
		Store: StoreConfig{
			RedisPrefix:       "wcs",
			TTL:               48 * time.Hour,
			SlidingExpiration: true,
		},
		RateLimit: RateLimitConfig{
			NewSessionWindow: time.Minute,
			RejectionWindow:  10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.Secret) == 0 {
		return errors.New("Token Secret is required")
	}
	if strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer is required")
	}
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}
	if c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be <= 2m")
	}
	if strings.TrimSpace(c.Token.HeaderName) == "" {
		return errors.New("Token HeaderName is required")
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return errors.New("Store RedisPrefix is required")
	}
	if strings.ContainsAny(c.Store.RedisPrefix, " \t\r\n") {
		return errors.New("Store RedisPrefix must not contain whitespace")
	}
	if c.Store.TTL <= 0 {
		return errors.New("Store TTL must be > 0")
	}

	// Rate limits
	if c.RateLimit.MaxNewSessionsPerIP < 0 || c.RateLimit.MaxRejectionsPerIP < 0 {
		return errors.New("RateLimit budgets must be >= 0")
	}
	if c.RateLimit.MaxNewSessionsPerIP > 0 && c.RateLimit.NewSessionWindow <= 0 {
		return errors.New("RateLimit NewSessionWindow must be > 0")
	}
	if c.RateLimit.MaxRejectionsPerIP > 0 && c.RateLimit.RejectionWindow <= 0 {
		return errors.New("RateLimit RejectionWindow must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if len(c.Token.Secret) < 32 {
			return errors.New("ProductionMode requires Token Secret length >= 256 bits")
		}
		if c.Token.TTL > 7*24*time.Hour {
			return errors.New("ProductionMode requires Token TTL <= 7d")
		}
		if !strings.HasPrefix(c.Token.Issuer, "https://") {
			return errors.New("ProductionMode requires an https Token Issuer")
		}
	}

	return nil
}

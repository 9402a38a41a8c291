package woosession

import (
	"time"

	"github.com/hwsiew/woosession/cart"
)

// SecurityReport summarizes the security-relevant settings an engine runs with. It
// never includes the secret itself.
type SecurityReport struct {
	ProductionMode    bool
	SigningAlgorithm  string
	SecretBits        int
	Issuer            string
	TokenTTL          time.Duration
	Leeway            time.Duration
	HeaderName        string
	StoreBackend      string
	StoreTTL          time.Duration
	SlidingExpiration bool
	RateLimiting      bool
	AuditEnabled      bool
	MetricsEnabled    bool
}

// SecurityReport returns the settings the engine was built with.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	backend := "custom"
	switch e.store.(type) {
	case *cart.MemoryStore:
		backend = "memory"
	case *cart.RedisStore:
		backend = "redis"
	}

	return SecurityReport{
		ProductionMode:    e.config.Security.ProductionMode,
		SigningAlgorithm:  "HS256",
		SecretBits:        len(e.config.Token.Secret) * 8,
		Issuer:            e.config.Token.Issuer,
		TokenTTL:          e.config.Token.TTL,
		Leeway:            e.config.Token.Leeway,
		HeaderName:        e.HeaderName(),
		StoreBackend:      backend,
		StoreTTL:          e.config.Store.TTL,
		SlidingExpiration: e.config.Store.SlidingExpiration,
		RateLimiting:      e.limiter != nil,
		AuditEnabled:      e.config.Audit.Enabled,
		MetricsEnabled:    e.config.Metrics.Enabled,
	}
}

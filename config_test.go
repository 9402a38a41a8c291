package woosession

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with secret and issuer", mutate: func(*Config) {}, wantValid: true},
		{name: "missing secret", mutate: func(c *Config) { c.Token.Secret = nil }},
		{name: "blank issuer", mutate: func(c *Config) { c.Token.Issuer = "   " }},
		{name: "zero ttl", mutate: func(c *Config) { c.Token.TTL = 0 }},
		{name: "negative leeway", mutate: func(c *Config) { c.Token.Leeway = -time.Second }},
		{name: "leeway too large", mutate: func(c *Config) { c.Token.Leeway = 3 * time.Minute }},
		{name: "zero leeway", mutate: func(c *Config) { c.Token.Leeway = 0 }, wantValid: true},
		{name: "blank header", mutate: func(c *Config) { c.Token.HeaderName = " " }},
		{name: "empty redis prefix", mutate: func(c *Config) { c.Store.RedisPrefix = "" }},
		{name: "redis prefix with space", mutate: func(c *Config) { c.Store.RedisPrefix = "wc s" }},
		{name: "zero store ttl", mutate: func(c *Config) { c.Store.TTL = 0 }},
		{name: "negative new session budget", mutate: func(c *Config) { c.RateLimit.MaxNewSessionsPerIP = -1 }},
		{
			name: "new session budget without window",
			mutate: func(c *Config) {
				c.RateLimit.MaxNewSessionsPerIP = 5
				c.RateLimit.NewSessionWindow = 0
			},
		},
		{
			name: "rejection budget with window",
			mutate: func(c *Config) {
				c.RateLimit.MaxRejectionsPerIP = 20
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
		},
		{
			name: "audit disabled ignores buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigProductionModeHardening(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Token.Secret = []byte("short") },
			wantErr: "256 bits",
		},
		{
			name:    "long ttl",
			mutate:  func(c *Config) { c.Token.TTL = 8 * 24 * time.Hour },
			wantErr: "TTL",
		},
		{
			name:    "plain http issuer",
			mutate:  func(c *Config) { c.Token.Issuer = "http://shop.example" },
			wantErr: "https",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Security.ProductionMode = true
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}

	cfg := testConfig()
	cfg.Security.ProductionMode = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("hardened config rejected: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Token.Leeway != 60*time.Second {
		t.Fatalf("leeway = %v, want 60s", cfg.Token.Leeway)
	}
	if cfg.Token.HeaderName != SessionHeader {
		t.Fatalf("header = %q", cfg.Token.HeaderName)
	}
	if cfg.Token.TTL != cfg.Store.TTL {
		t.Fatalf("token ttl %v and store ttl %v should match by default", cfg.Token.TTL, cfg.Store.TTL)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without secret must not validate")
	}
}

func TestBuilderCopiesConfigSecret(t *testing.T) {
	cfg := testConfig()
	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	token, err := engine.IssueToken("c1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	cfg.Token.Secret[0] ^= 0xff
	if _, err := engine.Authenticate(t.Context(), SessionPrefix+token); err != nil {
		t.Fatalf("mutating the caller's config must not affect the engine: %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

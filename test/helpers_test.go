//go:build integration
// +build integration

package test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hwsiew/woosession"
	"github.com/redis/go-redis/v9"
)

const (
	integrationSecret = "integration-secret-0123456789abcdef"
	integrationIssuer = "https://shop.example"
)

func newIntegrationRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newIntegrationEngine(t *testing.T, rdb redis.UniversalClient, secret string) *woosession.Engine {
	t.Helper()

	cfg := woosession.DefaultConfig()
	cfg.Token.Secret = []byte(secret)
	cfg.Token.Issuer = integrationIssuer
	cfg.Metrics.Enabled = true

	engine, err := woosession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCatalog(woosession.NewStaticCatalog(
			woosession.Product{ID: 1, Name: "T-Shirt", Price: 1800, InStock: true},
		)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func execute(t *testing.T, engine *woosession.Engine, op, vars, header string) *woosession.Response {
	t.Helper()

	req := woosession.Request{Operation: op, Header: map[string][]string{}}
	if vars != "" {
		req.Variables = []byte(vars)
	}
	if header != "" {
		req.Header.Set(woosession.SessionHeader, header)
	}
	return engine.Execute(t.Context(), req)
}

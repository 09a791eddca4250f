//go:build integration
// +build integration

package test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/MrEthical07/tokenslot"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var integrationSecret = tokenslot.StaticSecret("integration-secret-integration-secret")

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

func newIntegrationEngine(t *testing.T, rdb redis.UniversalClient) *tokenslot.Engine {
	t.Helper()

	cfg := tokenslot.DefaultConfig()
	cfg.Metrics.Enabled = true

	engine, err := tokenslot.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSecretProvider(integrationSecret).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func bearer(token string) string {
	return "Bearer " + token
}

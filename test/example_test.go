package test

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenslot"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	engine, err := tokenslot.New().
		WithRedis(rdb).
		WithSecretProvider(tokenslot.EnvSecret("JWT_SECRET")).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Authenticate shows how a request guard reacts to each rejection.
func ExampleEngine_Authenticate() {
	var engine *tokenslot.Engine
	res, err := engine.Authenticate(context.Background(), "Bearer <token>", tokenslot.Access)
	switch {
	case err == nil:
		_ = res.Subject
	case errors.Is(err, tokenslot.ErrMissingToken):
		// ask the client to authenticate
	default:
		// tokenslot.ReasonOf(err) is safe to log; the client only sees 401
		_ = tokenslot.ReasonOf(err)
	}
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *tokenslot.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot.Counters[tokenslot.MetricAuthStaleSession]
}

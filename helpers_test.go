package tokenslot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = StaticSecret("0123456789abcdef0123456789abcdef")

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceIDs yields j1, k1, j2, k2, ... in issuance order (access first).
func sequenceIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		prefix := "j"
		if n%2 == 0 {
			prefix = "k"
		}
		return fmt.Sprintf("%s%d", prefix, (n+1)/2), nil
	}
}

func plainVerifier() CredentialVerifier {
	return CredentialVerifierFunc(func(plaintext, hash string) bool {
		return hash == "plain:"+plaintext
	})
}

func buildTestEngine(t *testing.T, configure func(*Builder)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	b := New().
		WithRedis(rdb).
		WithSecretProvider(testSecret).
		WithCredentialVerifier(plainVerifier())
	if configure != nil {
		configure(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

type nopKV struct{}

func (nopKV) Set(context.Context, string, string) error { return nil }

func (nopKV) Get(context.Context, string) (string, bool, error) { return "", false, nil }

package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/tokenslot/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return New(NewRedisKV(rdb, ttl), time.Second), mr
}

type blockingKV struct{}

func (blockingKV) Set(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingKV) Get(ctx context.Context, _ string) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

func TestKeyFormat(t *testing.T) {
	if got := Key(jwt.Access, "u1"); got != "access_jti:u1" {
		t.Fatalf("unexpected access key %q", got)
	}
	if got := Key(jwt.Refresh, "u1"); got != "refresh_jti:u1" {
		t.Fatalf("unexpected refresh key %q", got)
	}
}

func TestPublishAndIsCurrent(t *testing.T) {
	reg, mr := newTestRegistry(t, 0)
	ctx := context.Background()

	if err := reg.Publish(ctx, "u1", jwt.Access, "j1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got, _ := mr.Get("access_jti:u1"); got != "j1" {
		t.Fatalf("expected raw value j1, got %q", got)
	}

	ok, err := reg.IsCurrent(ctx, "u1", jwt.Access, "j1")
	if err != nil || !ok {
		t.Fatalf("expected j1 current, got %v %v", ok, err)
	}

	ok, err = reg.IsCurrent(ctx, "u1", jwt.Access, "j0")
	if err != nil || ok {
		t.Fatalf("expected j0 not current, got %v %v", ok, err)
	}
}

func TestPublishOverwritesPreviousSession(t *testing.T) {
	reg, _ := newTestRegistry(t, 0)
	ctx := context.Background()

	_ = reg.Publish(ctx, "u1", jwt.Refresh, "k1")
	if err := reg.Publish(ctx, "u1", jwt.Refresh, "k2"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if ok, _ := reg.IsCurrent(ctx, "u1", jwt.Refresh, "k1"); ok {
		t.Fatal("expected k1 to be superseded")
	}
	if ok, _ := reg.IsCurrent(ctx, "u1", jwt.Refresh, "k2"); !ok {
		t.Fatal("expected k2 to be current")
	}
}

func TestClassesAreIndependent(t *testing.T) {
	reg, _ := newTestRegistry(t, 0)
	ctx := context.Background()

	_ = reg.Publish(ctx, "u1", jwt.Access, "same")
	if ok, _ := reg.IsCurrent(ctx, "u1", jwt.Refresh, "same"); ok {
		t.Fatal("access entry must not satisfy refresh lookup")
	}
	if ok, _ := reg.IsCurrent(ctx, "u2", jwt.Access, "same"); ok {
		t.Fatal("entry for u1 must not satisfy u2 lookup")
	}
}

func TestIsCurrentAbsentFailsClosed(t *testing.T) {
	reg, _ := newTestRegistry(t, 0)

	ok, err := reg.IsCurrent(context.Background(), "ghost", jwt.Access, "")
	if err != nil {
		t.Fatalf("absent key must not be an error: %v", err)
	}
	if ok {
		t.Fatal("absent key must not be current, even for an empty session id")
	}
}

func TestEntriesHaveNoTTLByDefault(t *testing.T) {
	reg, mr := newTestRegistry(t, 0)
	_ = reg.Publish(context.Background(), "u1", jwt.Access, "j1")

	if ttl := mr.TTL("access_jti:u1"); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}
}

func TestEntryTTLWhenConfigured(t *testing.T) {
	reg, mr := newTestRegistry(t, time.Hour)
	_ = reg.Publish(context.Background(), "u1", jwt.Access, "j1")

	if ttl := mr.TTL("access_jti:u1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := reg.IsCurrent(context.Background(), "u1", jwt.Access, "j1"); ok {
		t.Fatal("expected expired entry to be absent")
	}
}

func TestStoreErrorsAreUnavailable(t *testing.T) {
	reg, mr := newTestRegistry(t, 0)
	ctx := context.Background()
	mr.SetError("ERR simulated outage")

	if err := reg.Publish(ctx, "u1", jwt.Access, "j1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on publish, got %v", err)
	}
	ok, err := reg.IsCurrent(ctx, "u1", jwt.Access, "j1")
	if !errors.Is(err, ErrUnavailable) || ok {
		t.Fatalf("expected ErrUnavailable and false, got %v %v", ok, err)
	}
	if err := reg.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ping to fail, got %v", err)
	}
}

func TestOperationsAreBoundedByTimeout(t *testing.T) {
	reg := New(blockingKV{}, 20*time.Millisecond)

	start := time.Now()
	ok, err := reg.IsCurrent(context.Background(), "u1", jwt.Access, "j1")
	if !errors.Is(err, ErrUnavailable) || ok {
		t.Fatalf("expected timeout to surface as ErrUnavailable, got %v %v", ok, err)
	}
	if err := reg.Publish(context.Background(), "u1", jwt.Access, "j1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected publish timeout to surface as ErrUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("operations were not bounded, took %v", elapsed)
	}
}

func TestPingWithoutPingerSucceeds(t *testing.T) {
	if err := New(blockingKV{}, time.Millisecond).Ping(context.Background()); err != nil {
		t.Fatalf("expected nil for store without Ping, got %v", err)
	}
}

func TestInvalidClassRejected(t *testing.T) {
	reg, _ := newTestRegistry(t, 0)
	if err := reg.Publish(context.Background(), "u1", jwt.TokenClass(9), "x"); err == nil {
		t.Fatal("expected invalid class to fail")
	}
	if _, err := reg.IsCurrent(context.Background(), "u1", jwt.TokenClass(0), "x"); err == nil {
		t.Fatal("expected invalid class to fail")
	}
}

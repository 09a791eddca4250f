package test

import (
	"testing"
	"time"

	"github.com/MrEthical07/tokenslot"
)

func TestDefaultConfigPresetValidates(t *testing.T) {
	cfg := tokenslot.DefaultConfig()

	if cfg.JWT.AccessTTL != 900*time.Second {
		t.Fatalf("expected 900s access ttl, got %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 604800*time.Second {
		t.Fatalf("expected 604800s refresh ttl, got %v", cfg.JWT.RefreshTTL)
	}
	if cfg.JWT.Leeway != 0 {
		t.Fatalf("expected exact expiry by default, got leeway %v", cfg.JWT.Leeway)
	}
	if cfg.Registry.OpTimeout != 3*time.Second {
		t.Fatalf("expected 3s registry timeout, got %v", cfg.Registry.OpTimeout)
	}
	if cfg.Registry.EntryTTL != 0 {
		t.Fatalf("expected registry entries without ttl, got %v", cfg.Registry.EntryTTL)
	}
	if cfg.Audit.Enabled || cfg.Metrics.Enabled {
		t.Fatal("expected observability disabled in preset baseline")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected preset to validate, got %v", err)
	}
}

func TestDefaultConfigRejectsBrokenOverrides(t *testing.T) {
	cases := map[string]func(*tokenslot.Config){
		"zero access ttl":          func(c *tokenslot.Config) { c.JWT.AccessTTL = 0 },
		"refresh shorter":          func(c *tokenslot.Config) { c.JWT.RefreshTTL = time.Minute },
		"zero op timeout":          func(c *tokenslot.Config) { c.Registry.OpTimeout = 0 },
		"entry ttl below refresh":  func(c *tokenslot.Config) { c.Registry.EntryTTL = time.Hour },
		"latency without metrics":  func(c *tokenslot.Config) { c.Metrics.EnableLatencyHistograms = true },
	}
	for name, mutate := range cases {
		cfg := tokenslot.DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

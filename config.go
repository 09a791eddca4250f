package tokenslot

import (
	"errors"
	"time"

	"github.com/MrEthical07/tokenslot/jwt"
	"github.com/MrEthical07/tokenslot/registry"
)

// MinSecretBytes is the shortest HS256 secret Build accepts.
const MinSecretBytes = 32

// Config is the full engine configuration. Start from DefaultConfig and override.
type Config struct {
	JWT      JWTConfig
	Registry RegistryConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig sets token lifetimes. Tokens are always HS256.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway tolerates clock skew on exp. Zero means exp is exact.
	Leeway time.Duration
}

/*
====================================
REGISTRY CONFIG
====================================
*/

// RegistryConfig controls the session registry.
type RegistryConfig struct {
	// OpTimeout bounds every registry round trip.
	OpTimeout time.Duration
	// EntryTTL, when positive, expires registry entries. Zero keeps entries until the
	// next rotation overwrites them.
	EntryTTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig sets Argon2id parameters for the default credential verifier.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults: 15 minute access tokens, 7 day refresh
// tokens, a 3 second registry timeout and no registry entry TTL.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  jwt.DefaultAccessTTL,
			RefreshTTL: jwt.DefaultRefreshTTL,
		},
		Registry: RegistryConfig{
			OpTimeout: registry.DefaultTimeout,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
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
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.Registry.OpTimeout <= 0 {
		return errors.New("Registry OpTimeout must be > 0")
	}
	if c.Registry.EntryTTL < 0 {
		return errors.New("Registry EntryTTL must be >= 0")
	}
	if c.Registry.EntryTTL > 0 && c.Registry.EntryTTL < c.JWT.RefreshTTL {
		return errors.New("Registry EntryTTL must be 0 or >= JWT RefreshTTL")
	}

	if c.Password.Memory == 0 || c.Password.Time == 0 || c.Password.Parallelism == 0 {
		return errors.New("Password parameters must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

package tokenslot

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokenslot/internal/audit"
	"github.com/MrEthical07/tokenslot/internal/flows"
	"github.com/MrEthical07/tokenslot/internal/metrics"
	"github.com/MrEthical07/tokenslot/jwt"
	"github.com/MrEthical07/tokenslot/password"
	"github.com/MrEthical07/tokenslot/registry"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	kv     registry.KVStore

	secrets   SecretProvider
	verifier  CredentialVerifier
	auditSink AuditSink
	logger    *slog.Logger

	now          func() time.Time
	newSessionID func() (string, error)

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the registry backend. Any go-redis client (single node, cluster,
// failover) is accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithKVStore sets a custom registry backend. It takes precedence over WithRedis, and
// Registry.EntryTTL is then the store's concern.
func (b *Builder) WithKVStore(kv registry.KVStore) *Builder {
	b.kv = kv
	return b
}

func (b *Builder) WithSecretProvider(p SecretProvider) *Builder {
	b.secrets = p
	return b
}

// WithCredentialVerifier overrides the default Argon2id verifier used by Login.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces time.Now for issuance and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithSessionIDGenerator replaces the random UUIDv4 jti generator.
func (b *Builder) WithSessionIDGenerator(fn func() (string, error)) *Builder {
	b.newSessionID = fn
	return b
}

// Build validates configuration, loads the signing secret once and returns the Engine.
//
// Build fails with ErrSigningSecretUnavailable when no provider is set, the provider
// errors, or the secret is shorter than MinSecretBytes.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	secret, err := loadSecret(b.secrets)
	if err != nil {
		return nil, err
	}

	kv := b.kv
	if kv == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or KV store required")
		}
		kv = registry.NewRedisKV(b.redis, cfg.Registry.EntryTTL)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:       secret,
		AccessTTL:    cfg.JWT.AccessTTL,
		RefreshTTL:   cfg.JWT.RefreshTTL,
		Leeway:       cfg.JWT.Leeway,
		Now:          b.now,
		NewSessionID: b.newSessionID,
	})
	if err != nil {
		return nil, err
	}

	verifier := b.verifier
	if verifier == nil {
		ph, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		verifier = ph
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New(kv, cfg.Registry.OpTimeout)
	rotate := flows.RotateDeps{Issuer: tokens, Registry: reg}

	engine := &Engine{
		config:   cfg,
		tokens:   tokens,
		registry: reg,
		logger:   logger.With(slog.String("component", "tokenslot")),
		metrics:  metrics.New(cfg.Metrics.Enabled, cfg.Metrics.EnableLatencyHistograms),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		flows: flows.Deps{
			Rotate: rotate,
			Authenticate: flows.AuthenticateDeps{
				Parse:    tokens.Parse,
				Registry: reg,
			},
			Login: flows.LoginDeps{
				CheckPassword: verifier.CheckPassword,
				Rotate:        rotate,
			},
		},
	}

	b.built = true

	return engine, nil
}

func loadSecret(p SecretProvider) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no secret provider configured", ErrSigningSecretUnavailable)
	}
	secret, err := p.SigningSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningSecretUnavailable, err)
	}
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrSigningSecretUnavailable, MinSecretBytes)
	}
	return secret, nil
}

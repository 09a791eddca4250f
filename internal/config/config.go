// Package config loads the tokenslot-server configuration from a YAML file and the
// environment.
//
// Sources, highest priority first:
//  1. explicit path from --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment only.
//
// Environment variables always overlay file values.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env           string              `yaml:"env" env:"ENV" env-default:"local"`
	Log           LogConfig           `yaml:"log"`
	HTTP          HTTPConfig          `yaml:"http"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Registry      RegistryConfig      `yaml:"registry"`
	Observability ObservabilityConfig `yaml:"observability"`
	Timeouts      TimeoutConfig       `yaml:"timeouts"`
}

// LogConfig selects the slog handler. An empty format follows Env.
type LogConfig struct {
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// RedisConfig points at the session registry store. Embedded starts an in-process
// miniredis instead and is meant for local runs only.
type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Embedded bool   `yaml:"embedded" env:"REDIS_EMBEDDED" env-default:"false"`
}

// AuthConfig holds token settings. JWTSecret is never logged.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Leeway          time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"0s"`
}

type RegistryConfig struct {
	OpTimeout time.Duration `yaml:"op_timeout" env:"REGISTRY_OP_TIMEOUT" env-default:"3s"`
	EntryTTL  time.Duration `yaml:"entry_ttl" env:"REGISTRY_ENTRY_TTL" env-default:"0s"`
}

type ObservabilityConfig struct {
	Metrics           bool `yaml:"metrics" env:"METRICS_ENABLED" env-default:"true"`
	LatencyHistograms bool `yaml:"latency_histograms" env:"METRICS_LATENCY" env-default:"false"`
	AuditLog          bool `yaml:"audit_log" env:"AUDIT_LOG" env-default:"false"`
}

type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"15s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Validate checks cross-field rules cleanenv cannot express. Token TTL and registry
// rules are enforced again by the engine builder.
func (c *Config) Validate() error {
	if !c.Redis.Embedded && strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("redis.url is required unless redis.embedded is set")
	}
	if c.Redis.Embedded && c.Env == EnvProd {
		return errors.New("embedded redis is not allowed in prod")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Timeouts.Shutdown <= 0 {
		return errors.New("timeouts.shutdown must be > 0")
	}
	return nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		// ReadConfig overlays the environment after parsing the file.
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", p, err)
		}
		return validated(&cfg)
	}

	if path != "" {
		return readFile(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return validated(&cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

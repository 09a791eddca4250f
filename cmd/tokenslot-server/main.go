package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenslot"
	"github.com/MrEthical07/tokenslot/internal/config"
	"github.com/MrEthical07/tokenslot/internal/server"
	promexport "github.com/MrEthical07/tokenslot/metrics/export/prometheus"
	"github.com/MrEthical07/tokenslot/password"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	gitHash   = "unknown"
	buildTime = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env, cfg.Log)
	slog.SetDefault(log)
	log.Info("starting tokenslot-server", slog.String("env", cfg.Env), slog.String("version", version))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	rdb, closeRedis, err := openRedis(rootCtx, cfg.Redis)
	if err != nil {
		log.Error("redis_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeRedis()

	engineCfg := engineConfig(cfg)
	hasher, err := password.NewArgon2(password.Config{
		Memory:      engineCfg.Password.Memory,
		Time:        engineCfg.Password.Time,
		Parallelism: engineCfg.Password.Parallelism,
		SaltLength:  engineCfg.Password.SaltLength,
		KeyLength:   engineCfg.Password.KeyLength,
	})
	if err != nil {
		log.Error("hasher_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	builder := tokenslot.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithSecretProvider(tokenslot.StaticSecret(cfg.Auth.JWTSecret)).
		WithCredentialVerifier(hasher).
		WithLogger(log)
	if cfg.Observability.AuditLog {
		builder = builder.WithAuditSink(tokenslot.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Error("engine_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.Ping(rootCtx); err != nil {
		log.Warn("registry_unreachable_at_start", slog.String("err", err.Error()))
	}

	opts := server.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Build:   server.BuildInfo{Version: version, GitHash: gitHash, BuildTime: buildTime},
	}
	if cfg.Observability.Metrics {
		opts.Metrics = promexport.NewPrometheusExporter(engine).Handler()
	}

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           server.NewRouter(engine, server.NewDirectory(hasher), opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped", slog.Uint64("audit_dropped", engine.AuditDropped()))
}

func engineConfig(cfg *config.Config) tokenslot.Config {
	out := tokenslot.DefaultConfig()
	out.JWT.AccessTTL = cfg.Auth.AccessTokenTTL
	out.JWT.RefreshTTL = cfg.Auth.RefreshTokenTTL
	out.JWT.Leeway = cfg.Auth.Leeway
	out.Registry.OpTimeout = cfg.Registry.OpTimeout
	out.Registry.EntryTTL = cfg.Registry.EntryTTL
	out.Audit.Enabled = cfg.Observability.AuditLog
	out.Metrics.Enabled = cfg.Observability.Metrics
	out.Metrics.EnableLatencyHistograms = cfg.Observability.Metrics && cfg.Observability.LatencyHistograms
	return out
}

// openRedis connects to cfg.URL, or starts an in-process miniredis when Embedded is set.
func openRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, func(), error) {
	if cfg.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		slog.Warn("using_embedded_redis", slog.String("addr", mr.Addr()))
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

func setupLogger(env string, lc config.LogConfig) *slog.Logger {
	format := lc.Format
	if format == "" {
		format = "json"
		if env == config.EnvLocal {
			format = "text"
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Package server is the HTTP surface of tokenslot-server.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/tokenslot"
	"github.com/MrEthical07/tokenslot/middleware"
)

// Engine is the subset of *tokenslot.Engine the handlers use.
type Engine interface {
	middleware.Authenticator
	IssueInitialSession(ctx context.Context, subject string) (*tokenslot.TokenPair, error)
	Login(ctx context.Context, req tokenslot.LoginRequest) (*tokenslot.TokenPair, error)
	Refresh(ctx context.Context, header string) (*tokenslot.TokenPair, error)
	Ping(ctx context.Context) error
}

// BuildInfo is reported by /system/version.
type BuildInfo struct {
	Version   string `json:"version"`
	GitHash   string `json:"git_hash"`
	BuildTime string `json:"build_time"`
}

type Options struct {
	Logger *slog.Logger
	// Timeout bounds each request; zero disables it.
	Timeout time.Duration
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
	Build   BuildInfo
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter wires the auth, profile and system routes.
func NewRouter(engine Engine, users *Directory, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		requestLogger(opts.Logger),
		chimw.Recoverer,
		requestContext,
	)
	if opts.Timeout > 0 {
		r.Use(chimw.Timeout(opts.Timeout))
	}

	h := &handlers{
		engine:  engine,
		users:   users,
		logger:  opts.Logger,
		build:   opts.Build,
		now:     opts.Now,
		started: opts.Now(),
	}
	registerRoutes(r, h, engine)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

func registerRoutes(r chi.Router, h *handlers, auth middleware.Authenticator) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/refresh", h.refresh)

	r.With(middleware.RequireAccess(auth)).Get("/me", h.me)

	r.Get("/system/health", h.health)
	r.Get("/system/version", h.version)
}

// requestContext copies the chi request id onto the context the engine reads for
// audit events.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			r = r.WithContext(tokenslot.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			l.LogAttrs(r.Context(), slog.LevelInfo, "http",
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}

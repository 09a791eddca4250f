package tokenslot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenslot/internal/audit"
	"github.com/MrEthical07/tokenslot/internal/flows"
	"github.com/MrEthical07/tokenslot/internal/metrics"
	"github.com/MrEthical07/tokenslot/jwt"
	"github.com/MrEthical07/tokenslot/registry"
)

// Engine issues, rotates and authenticates tokens. Build one with [New].
type Engine struct {
	config   Config
	tokens   *jwt.Manager
	registry *registry.Registry
	flows    flows.Deps
	audit    *audit.Dispatcher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	closed   atomic.Bool
}

// Close flushes pending audit events. Subsequent calls return ErrEngineNotReady.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// IssueInitialSession issues a fresh pair for subject and publishes both session ids,
// revoking any earlier tokens of the subject.
//
//	Performance: 2 registry writes.
func (e *Engine) IssueInitialSession(ctx context.Context, subject string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, ErrInvalidSubject
	}

	res := flows.RunRotate(ctx, subject, e.flows.Rotate)
	if res.Failure != flows.RotateFailureNone {
		return nil, e.rotationFailed(ctx, res)
	}

	e.metrics.Inc(metrics.MetricSessionIssued)
	e.sessionAudit(ctx, audit.EventSessionIssued, res)
	return pairFromRotate(res), nil
}

// RotateSession replaces subject's current pair. It has the same semantics as
// IssueInitialSession and is reported separately in metrics and audit.
//
//	Performance: 2 registry writes.
func (e *Engine) RotateSession(ctx context.Context, subject string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, ErrInvalidSubject
	}

	res := flows.RunRotate(ctx, subject, e.flows.Rotate)
	if res.Failure != flows.RotateFailureNone {
		return nil, e.rotationFailed(ctx, res)
	}

	e.metrics.Inc(metrics.MetricSessionRotated)
	e.sessionAudit(ctx, audit.EventSessionRotated, res)
	return pairFromRotate(res), nil
}

// Authenticate validates an Authorization header value for a route that expects class.
//
// On rejection the error matches exactly one of ErrMissingToken, ErrInvalidToken,
// ErrWrongTokenClass or ErrStaleSession; use PublicError before returning it to a client.
//
//	Performance: 0 registry round trips on rejection before the registry check, 1 GET otherwise.
func (e *Engine) Authenticate(ctx context.Context, header string, class TokenClass) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := flows.RunAuthenticate(ctx, header, class, e.flows.Authenticate)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(metrics.MetricAuthenticateLatency, time.Since(start))
	}

	if res.State == flows.GuardAccepted {
		e.metrics.Inc(metrics.MetricAuthAccepted)
		return &AuthResult{
			Subject:   res.Claims.Subject,
			SessionID: res.Claims.SessionID(),
			Class:     res.Claims.TokenType,
			ExpiresAt: res.Claims.ExpiresAt.Time,
		}, nil
	}

	err := e.mapAuthenticateFailure(res)
	e.authRejected(ctx, class, res, err)
	return nil, err
}

func (e *Engine) mapAuthenticateFailure(res flows.AuthenticateResult) error {
	switch res.Failure {
	case flows.AuthenticateFailureMissingToken:
		e.metrics.Inc(metrics.MetricAuthMissingToken)
		return ErrMissingToken
	case flows.AuthenticateFailureInvalidToken:
		e.metrics.Inc(metrics.MetricAuthInvalidToken)
		return fmt.Errorf("%w: %w", ErrInvalidToken, res.Err)
	case flows.AuthenticateFailureWrongClass:
		e.metrics.Inc(metrics.MetricAuthWrongClass)
		return ErrWrongTokenClass
	default:
		e.metrics.Inc(metrics.MetricAuthStaleSession)
		if res.Err != nil {
			e.metrics.Inc(metrics.MetricRegistryFailure)
			return fmt.Errorf("%w: %w", ErrStaleSession, res.Err)
		}
		return ErrStaleSession
	}
}

// Login checks req.Password against req.PasswordHash and, on success, issues an initial
// session for req.Subject.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	res := flows.RunLogin(ctx, req.Subject, req.Password, req.PasswordHash, e.flows.Login)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureInvalidCredentials:
		e.metrics.Inc(metrics.MetricLoginFailure)
		e.emitAudit(ctx, audit.Event{
			EventType: audit.EventLoginFailed,
			Subject:   req.Subject,
			Reason:    "invalid_credentials",
		})
		e.logger.DebugContext(ctx, "login rejected", slog.String("subject", req.Subject))
		return nil, ErrInvalidCredentials
	default:
		e.metrics.Inc(metrics.MetricLoginFailure)
		return nil, e.rotationFailed(ctx, res.Rotate)
	}

	e.metrics.Inc(metrics.MetricLoginSuccess)
	e.metrics.Inc(metrics.MetricSessionIssued)
	e.sessionAudit(ctx, audit.EventSessionIssued, res.Rotate)
	return pairFromRotate(res.Rotate), nil
}

// Refresh authenticates header as a refresh token and rotates the subject's session.
// The presented refresh token is superseded by the rotation.
//
//	Performance: 1 GET + 2 SET.
func (e *Engine) Refresh(ctx context.Context, header string) (*TokenPair, error) {
	auth, err := e.Authenticate(ctx, header, Refresh)
	if err != nil {
		e.metrics.Inc(metrics.MetricRefreshFailure)
		return nil, err
	}

	pair, err := e.RotateSession(ctx, auth.Subject)
	if err != nil {
		e.metrics.Inc(metrics.MetricRefreshFailure)
		return nil, err
	}

	e.metrics.Inc(metrics.MetricRefreshSuccess)
	return pair, nil
}

// Ping checks registry reachability within the configured operation timeout.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.registry.Ping(ctx)
}

func (e *Engine) rotationFailed(ctx context.Context, res flows.RotateResult) error {
	e.metrics.Inc(metrics.MetricRotationFailure)

	stage := rotateStage(res.Failure)
	if errors.Is(res.Err, registry.ErrUnavailable) {
		e.metrics.Inc(metrics.MetricRegistryFailure)
	}

	e.logger.WarnContext(ctx, "session rotation failed",
		slog.String("subject", res.Subject),
		slog.String("stage", stage),
		slog.Any("error", res.Err),
	)
	e.emitAudit(ctx, audit.Event{
		EventType: audit.EventRotationFailed,
		Subject:   res.Subject,
		Reason:    stage,
	})

	return fmt.Errorf("%w: %s: %w", ErrRotationFailed, stage, res.Err)
}

func (e *Engine) authRejected(ctx context.Context, class TokenClass, res flows.AuthenticateResult, err error) {
	reason := ReasonOf(err)

	var subject, sessionID string
	if res.Claims != nil {
		subject = res.Claims.Subject
		sessionID = res.Claims.SessionID()
	}

	if reason == ReasonRegistryUnavailable {
		e.logger.WarnContext(ctx, "session registry unavailable during authenticate",
			slog.String("subject", subject),
			slog.Any("error", res.Err),
		)
	} else {
		e.logger.DebugContext(ctx, "authentication rejected",
			slog.String("reason", string(reason)),
			slog.String("state", res.RejectedAt.String()),
			slog.String("subject", subject),
		)
	}

	e.emitAudit(ctx, audit.Event{
		EventType:  audit.EventAuthRejected,
		Subject:    subject,
		TokenClass: class.String(),
		SessionID:  sessionID,
		Reason:     string(reason),
	})
}

func rotateStage(kind flows.RotateFailureKind) string {
	switch kind {
	case flows.RotateFailureIssueAccess:
		return "issue_access"
	case flows.RotateFailureIssueRefresh:
		return "issue_refresh"
	case flows.RotateFailurePublishAccess:
		return "publish_access"
	case flows.RotateFailurePublishRefresh:
		return "publish_refresh"
	default:
		return "unknown"
	}
}

func pairFromRotate(res flows.RotateResult) *TokenPair {
	return &TokenPair{
		Subject:          res.Subject,
		AccessToken:      res.Access.Token,
		RefreshToken:     res.Refresh.Token,
		AccessSessionID:  res.Access.SessionID,
		RefreshSessionID: res.Refresh.SessionID,
		AccessExpiresAt:  res.Access.ExpiresAt,
		RefreshExpiresAt: res.Refresh.ExpiresAt,
	}
}

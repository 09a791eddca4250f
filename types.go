package tokenslot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/tokenslot/internal/audit"
	internalmetrics "github.com/MrEthical07/tokenslot/internal/metrics"
	"github.com/MrEthical07/tokenslot/jwt"
)

// TokenClass distinguishes access tokens from refresh tokens.
type TokenClass = jwt.TokenClass

const (
	Access  = jwt.Access
	Refresh = jwt.Refresh
)

// AuthResult is returned by [Engine.Authenticate] on acceptance.
type AuthResult struct {
	Subject   string
	SessionID string
	Class     TokenClass
	ExpiresAt time.Time
}

// TokenPair is the result of issuing or rotating a session. Each token carries its own
// session id; the two are independent.
type TokenPair struct {
	Subject          string
	AccessToken      string
	RefreshToken     string
	AccessSessionID  string
	RefreshSessionID string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginRequest carries the presented password and the stored hash for Subject. Looking up
// the hash is the caller's concern.
type LoginRequest struct {
	Subject      string
	Password     string
	PasswordHash string
}

// CredentialVerifier checks a plaintext password against a stored hash.
type CredentialVerifier interface {
	CheckPassword(plaintext, hash string) bool
}

// CredentialVerifierFunc adapts a function to CredentialVerifier.
type CredentialVerifierFunc func(plaintext, hash string) bool

func (f CredentialVerifierFunc) CheckPassword(plaintext, hash string) bool {
	return f(plaintext, hash)
}

// SecretProvider yields the HS256 signing secret. It is called once, at Build.
type SecretProvider interface {
	SigningSecret() ([]byte, error)
}

// StaticSecret is a SecretProvider over a fixed byte slice.
type StaticSecret []byte

func (s StaticSecret) SigningSecret() ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("static secret is empty")
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

// EnvSecret reads the secret from the named environment variable, trimming surrounding
// whitespace.
type EnvSecret string

func (name EnvSecret) SigningSecret() ([]byte, error) {
	v, ok := os.LookupEnv(string(name))
	if !ok {
		return nil, fmt.Errorf("environment variable %s is not set", string(name))
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("environment variable %s is empty", string(name))
	}
	return []byte(v), nil
}

// AuditEvent is the audit event payload delivered to an [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON audit event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

const (
	AuditSessionIssued  = internalaudit.EventSessionIssued
	AuditSessionRotated = internalaudit.EventSessionRotated
	AuditRotationFailed = internalaudit.EventRotationFailed
	AuditLoginFailed    = internalaudit.EventLoginFailed
	AuditAuthRejected   = internalaudit.EventAuthRejected
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies an engine counter or histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricSessionIssued       = internalmetrics.MetricSessionIssued
	MetricSessionRotated      = internalmetrics.MetricSessionRotated
	MetricRotationFailure     = internalmetrics.MetricRotationFailure
	MetricLoginSuccess        = internalmetrics.MetricLoginSuccess
	MetricLoginFailure        = internalmetrics.MetricLoginFailure
	MetricRefreshSuccess      = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure      = internalmetrics.MetricRefreshFailure
	MetricAuthAccepted        = internalmetrics.MetricAuthAccepted
	MetricAuthMissingToken    = internalmetrics.MetricAuthMissingToken
	MetricAuthInvalidToken    = internalmetrics.MetricAuthInvalidToken
	MetricAuthWrongClass      = internalmetrics.MetricAuthWrongClass
	MetricAuthStaleSession    = internalmetrics.MetricAuthStaleSession
	MetricRegistryFailure     = internalmetrics.MetricRegistryFailure
	MetricAuthenticateLatency = internalmetrics.MetricAuthenticateLatency
)

// MetricsSnapshot is a point-in-time copy of all engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot

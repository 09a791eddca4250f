package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/tokenslot/jwt"
)

// GuardState is the position reached by RunAuthenticate. Accepted and Rejected are terminal.
type GuardState int

const (
	GuardNoToken GuardState = iota
	GuardVerifying
	GuardVerified
	GuardRegistryChecked
	GuardAccepted
	GuardRejected
)

func (s GuardState) String() string {
	switch s {
	case GuardNoToken:
		return "no_token"
	case GuardVerifying:
		return "verifying"
	case GuardVerified:
		return "verified"
	case GuardRegistryChecked:
		return "registry_checked"
	case GuardAccepted:
		return "accepted"
	case GuardRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// AuthenticateFailureKind classifies guard rejections.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureMissingToken
	AuthenticateFailureInvalidToken
	AuthenticateFailureWrongClass
	AuthenticateFailureStaleSession
)

// AuthenticateResult records the terminal state, the state the guard was in when it
// rejected, and the verified claims on acceptance.
type AuthenticateResult struct {
	State      GuardState
	RejectedAt GuardState
	Failure    AuthenticateFailureKind
	Err        error
	Claims     *jwt.Claims
}

type AuthenticateRegistry interface {
	IsCurrent(ctx context.Context, subject string, class jwt.TokenClass, sessionID string) (bool, error)
}

// AuthenticateDeps captures guard dependencies.
type AuthenticateDeps struct {
	Parse    func(string) (*jwt.Claims, error)
	Registry AuthenticateRegistry
}

const bearerPrefix = "Bearer "

// ExtractBearer returns the token following "Bearer " in an Authorization header value.
func ExtractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}

	return token, true
}

// RunAuthenticate drives NoToken → Verifying → Verified → RegistryChecked → Accepted,
// rejecting at the first failed check. A registry error rejects exactly like a stale
// session.
func RunAuthenticate(ctx context.Context, header string, expected jwt.TokenClass, deps AuthenticateDeps) AuthenticateResult {
	token, ok := ExtractBearer(header)
	if !ok {
		return reject(GuardNoToken, AuthenticateFailureMissingToken, nil, nil)
	}

	claims, err := deps.Parse(token)
	if err != nil {
		return reject(GuardVerifying, AuthenticateFailureInvalidToken, err, nil)
	}

	if claims.TokenType != expected {
		return reject(GuardVerified, AuthenticateFailureWrongClass, nil, claims)
	}

	current, err := deps.Registry.IsCurrent(ctx, claims.Subject, claims.TokenType, claims.SessionID())
	if err != nil || !current {
		return reject(GuardRegistryChecked, AuthenticateFailureStaleSession, err, claims)
	}

	return AuthenticateResult{
		State:  GuardAccepted,
		Claims: claims,
	}
}

func reject(at GuardState, kind AuthenticateFailureKind, err error, claims *jwt.Claims) AuthenticateResult {
	return AuthenticateResult{
		State:      GuardRejected,
		RejectedAt: at,
		Failure:    kind,
		Err:        err,
		Claims:     claims,
	}
}

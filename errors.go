package tokenslot

import (
	"errors"

	"github.com/MrEthical07/tokenslot/jwt"
	"github.com/MrEthical07/tokenslot/password"
	"github.com/MrEthical07/tokenslot/registry"
)

// Authenticate rejections. Every error returned by [Engine.Authenticate] matches exactly
// one of ErrMissingToken, ErrInvalidToken, ErrWrongTokenClass or ErrStaleSession under
// errors.Is; invalid-token and stale-session errors additionally match their precise cause.
var (
	// ErrMissingToken means the Authorization header is absent or not "Bearer <token>".
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken groups signature, format and expiry failures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenClass means a well-formed token of the other class was presented.
	ErrWrongTokenClass = errors.New("wrong token class")
	// ErrStaleSession means the token's session id is not the current one for its
	// subject and class, or the registry could not confirm that it is.
	ErrStaleSession = errors.New("stale or unknown session")
)

// Precise verification causes, wrapped under ErrInvalidToken.
var (
	ErrMalformedToken    = jwt.ErrMalformed
	ErrSignatureMismatch = jwt.ErrSignatureMismatch
	ErrExpiredToken      = jwt.ErrExpired
)

var (
	// ErrRegistryUnavailable is returned when the session store fails or times out.
	ErrRegistryUnavailable = registry.ErrUnavailable
	// ErrSigningSecretUnavailable fails Build when no usable secret can be loaded.
	ErrSigningSecretUnavailable = errors.New("signing secret unavailable")
	// ErrRotationFailed wraps issuance or publish failures during rotation.
	ErrRotationFailed = errors.New("session rotation failed")
	// ErrInvalidSubject is returned for an empty subject.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrInvalidCredentials is returned by Login when the password check fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordPolicy is returned when a new password fails the strength rules.
	ErrPasswordPolicy = password.ErrPolicy
	// ErrUnauthorized is the single public face of every rejection except ErrMissingToken.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEngineNotReady is returned when a method is called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RejectionReason is a stable, loggable label for an authentication failure.
type RejectionReason string

const (
	ReasonNone                RejectionReason = ""
	ReasonMissingToken        RejectionReason = "missing_token"
	ReasonMalformedToken      RejectionReason = "malformed_token"
	ReasonSignatureMismatch   RejectionReason = "signature_mismatch"
	ReasonExpiredToken        RejectionReason = "expired_token"
	ReasonWrongTokenClass     RejectionReason = "wrong_token_class"
	ReasonStaleSession        RejectionReason = "stale_session"
	ReasonRegistryUnavailable RejectionReason = "registry_unavailable"
	ReasonUnknown             RejectionReason = "unknown"
)

// ReasonOf maps err to its most precise RejectionReason.
func ReasonOf(err error) RejectionReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrMissingToken):
		return ReasonMissingToken
	case errors.Is(err, ErrSignatureMismatch):
		return ReasonSignatureMismatch
	case errors.Is(err, ErrExpiredToken):
		return ReasonExpiredToken
	case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrInvalidToken):
		return ReasonMalformedToken
	case errors.Is(err, ErrWrongTokenClass):
		return ReasonWrongTokenClass
	case errors.Is(err, ErrRegistryUnavailable):
		return ReasonRegistryUnavailable
	case errors.Is(err, ErrStaleSession):
		return ReasonStaleSession
	default:
		return ReasonUnknown
	}
}

// PublicError returns the error safe to show a client: ErrMissingToken for a missing
// header, ErrUnauthorized for everything else. It returns nil for nil.
func PublicError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMissingToken):
		return ErrMissingToken
	default:
		return ErrUnauthorized
	}
}

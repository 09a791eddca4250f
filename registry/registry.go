package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenslot/jwt"
)

// ErrUnavailable is returned when the backing store fails or does not answer in time.
var ErrUnavailable = errors.New("session registry unavailable")

// DefaultTimeout bounds a single registry round trip.
const DefaultTimeout = 3 * time.Second

// Registry is the one-slot "current session" pointer per (subject, class).
type Registry struct {
	kv      KVStore
	timeout time.Duration
}

// New returns a Registry over kv. A non-positive timeout selects DefaultTimeout.
func New(kv KVStore, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{kv: kv, timeout: timeout}
}

// Key returns the store key for (class, subject).
func Key(class jwt.TokenClass, subject string) string {
	return class.String() + "_jti:" + subject
}

// Publish unconditionally records sessionID as the live session for (subject, class).
//
//	Performance: 1 SET.
func (r *Registry) Publish(ctx context.Context, subject string, class jwt.TokenClass, sessionID string) error {
	if !class.Valid() {
		return fmt.Errorf("publish: invalid token class %d", uint8(class))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.kv.Set(ctx, Key(class, subject), sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsCurrent reports whether sessionID is exactly the value stored for (subject, class).
// An absent entry yields false with no error.
//
//	Performance: 1 GET.
func (r *Registry) IsCurrent(ctx context.Context, subject string, class jwt.TokenClass, sessionID string) (bool, error) {
	if !class.Valid() {
		return false, fmt.Errorf("is current: invalid token class %d", uint8(class))
	}

	current, ok, err := r.Current(ctx, subject, class)
	if err != nil {
		return false, err
	}
	return ok && current == sessionID, nil
}

// Current returns the recorded session id for (subject, class), if any.
func (r *Registry) Current(ctx context.Context, subject string, class jwt.TokenClass) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	v, ok, err := r.kv.Get(ctx, Key(class, subject))
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, ok, nil
}

// Ping checks store reachability when the store supports it.
func (r *Registry) Ping(ctx context.Context) error {
	p, ok := r.kv.(Pinger)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

package jwt

import (
	"fmt"
	"time"
)

// TokenClass distinguishes short-lived access tokens from long-lived refresh tokens.
// The zero value is not a valid class.
type TokenClass uint8

const (
	// Access tokens authorize ordinary requests.
	Access TokenClass = iota + 1
	// Refresh tokens are only accepted by the rotation endpoint.
	Refresh
)

const (
	// DefaultAccessTTL is the lifetime of an access token.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the lifetime of a refresh token.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// String returns the wire name used in the token_type claim and registry keys.
func (c TokenClass) String() string {
	switch c {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Valid reports whether c is Access or Refresh.
func (c TokenClass) Valid() bool {
	return c == Access || c == Refresh
}

// ParseTokenClass maps a wire name back to a TokenClass.
func ParseTokenClass(s string) (TokenClass, error) {
	switch s {
	case "access":
		return Access, nil
	case "refresh":
		return Refresh, nil
	default:
		return 0, fmt.Errorf("unknown token class %q", s)
	}
}

func (c TokenClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid token class %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *TokenClass) UnmarshalText(text []byte) error {
	parsed, err := ParseTokenClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

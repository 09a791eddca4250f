package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned when a token cannot be parsed or its claim set is incomplete.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureMismatch is returned when the signature does not match the recomputed one.
	ErrSignatureMismatch = errors.New("token signature mismatch")
	// ErrExpired is returned when exp is not after the verification time.
	ErrExpired = errors.New("token expired")
)

// Config holds the signing secret and per-class lifetimes.
//
// Now and NewSessionID are optional hooks; they default to time.Now and a random
// UUIDv4 respectively.
type Config struct {
	Secret       []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Leeway       time.Duration
	Now          func() time.Time
	NewSessionID func() (string, error)
}

// Manager signs, verifies and issues tokens. It is immutable after NewManager and safe
// for concurrent use.
type Manager struct {
	secret       []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	leeway       time.Duration
	now          func() time.Time
	newSessionID func() (string, error)
	parser       *jwt.Parser
}

// Claims is the signed payload: {"sub", "jti", "exp", "token_type"}.
type Claims struct {
	TokenType TokenClass `json:"token_type"`
	jwt.RegisteredClaims
}

// SessionID returns the jti claim.
func (c *Claims) SessionID() string {
	return c.ID
}

// Validate is invoked by the parser after the registered-claim checks.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return errors.New("missing sub")
	}
	if c.ID == "" {
		return errors.New("missing jti")
	}
	if !c.TokenType.Valid() {
		return errors.New("missing token_type")
	}
	return nil
}

// Issued is the result of a single issuance.
type Issued struct {
	Token     string
	SessionID string
	Class     TokenClass
	ExpiresAt time.Time
}

// NewManager validates cfg and returns a Manager. Zero TTLs fall back to the defaults.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a signing secret")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewSessionID == nil {
		cfg.NewSessionID = newRandomSessionID
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}

	return &Manager{
		secret:       secret,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
		leeway:       cfg.Leeway,
		now:          cfg.Now,
		newSessionID: cfg.NewSessionID,
		parser:       jwt.NewParser(options...),
	}, nil
}

// TTL returns the configured lifetime for class.
func (m *Manager) TTL(class TokenClass) time.Duration {
	if class == Refresh {
		return m.refreshTTL
	}
	return m.accessTTL
}

// Sign encodes claims as a compact HS256 token.
func (m *Manager) Sign(claims Claims) (string, error) {
	if !claims.TokenType.Valid() {
		return "", fmt.Errorf("sign: invalid token class %d", uint8(claims.TokenType))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(m.secret)
}

// Parse verifies the signature and expiry of tokenStr and returns its claims.
//
// The returned error always wraps exactly one of ErrMalformed, ErrSignatureMismatch
// or ErrExpired.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

// Issue builds a claim set for subject with a fresh session id, expiring now+TTL(class),
// and signs it.
func (m *Manager) Issue(subject string, class TokenClass) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("issue: empty subject")
	}
	if !class.Valid() {
		return Issued{}, fmt.Errorf("issue: invalid token class %d", uint8(class))
	}

	sid, err := m.newSessionID()
	if err != nil {
		return Issued{}, fmt.Errorf("issue: session id: %w", err)
	}

	expiresAt := m.now().Add(m.TTL(class))
	token, err := m.Sign(Claims{
		TokenType: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        sid,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Token:     token,
		SessionID: sid,
		Class:     class,
		ExpiresAt: expiresAt.Truncate(time.Second),
	}, nil
}

func classify(err error) error {
	switch {
	// Signature is checked before claims, so an expired forgery reports the signature.
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func newRandomSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

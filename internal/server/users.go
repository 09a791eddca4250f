package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/tokenslot/password"
	"github.com/google/uuid"
)

var (
	ErrUserExists      = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
)

const maxUsernameRunes = 64

// Hasher produces a stored password hash. *password.Argon2 satisfies it.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// User is a directory record. ID is the token subject.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Directory is an in-memory user store keyed by username. It only exists so the
// server can demonstrate the login and refresh flows end to end.
type Directory struct {
	hasher Hasher
	now    func() time.Time

	mu     sync.RWMutex
	byName map[string]User
	byID   map[string]string
}

func NewDirectory(h Hasher) *Directory {
	return &Directory{
		hasher: h,
		now:    time.Now,
		byName: make(map[string]User),
		byID:   make(map[string]string),
	}
}

// Register checks the password policy, hashes the password and stores a new user.
func (d *Directory) Register(username, plaintext string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameRunes {
		return User{}, ErrInvalidUsername
	}

	d.mu.RLock()
	_, taken := d.byName[username]
	d.mu.RUnlock()
	if taken {
		return User{}, ErrUserExists
	}

	if err := password.CheckStrength(plaintext); err != nil {
		return User{}, err
	}

	// Hashing is slow; do it outside the lock and re-check on insert.
	hash, err := d.hasher.Hash(plaintext)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    d.now().UTC(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byName[username]; taken {
		return User{}, ErrUserExists
	}
	d.byName[username] = u
	d.byID[u.ID] = username
	return u, nil
}

func (d *Directory) ByUsername(username string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byName[strings.TrimSpace(username)]
	return u, ok
}

func (d *Directory) ByID(id string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.byID[id]
	if !ok {
		return User{}, false
	}
	u, ok := d.byName[name]
	return u, ok
}

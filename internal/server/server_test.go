package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tokenslot"
	"github.com/MrEthical07/tokenslot/password"
)

const strongPassword = "Sup3r-Secret-Pass"

type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "plain:" + plaintext, nil }

func (plainHasher) CheckPassword(plaintext, hash string) bool { return hash == "plain:"+plaintext }

type testEnv struct {
	srv    *httptest.Server
	mr     *miniredis.Miniredis
	engine *tokenslot.Engine
	users  *Directory
}

func newTestEnv(t *testing.T, hasher interface {
	Hasher
	tokenslot.CredentialVerifier
}) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := tokenslot.DefaultConfig()
	cfg.Registry.OpTimeout = 200 * time.Millisecond

	engine, err := tokenslot.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSecretProvider(tokenslot.StaticSecret("0123456789abcdef0123456789abcdef")).
		WithCredentialVerifier(hasher).
		WithMetricsEnabled(true).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	users := NewDirectory(hasher)
	router := NewRouter(engine, users, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: 5 * time.Second,
		Build:   BuildInfo{Version: "1.2.3", GitHash: "abc", BuildTime: "now"},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "tokenslot_sessions_issued_total 1\n")
		}),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, mr: mr, engine: engine, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, body, bearer string) (*http.Response, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func tokenPair(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	tok, ok := body["token"].(map[string]any)
	require.True(t, ok, "missing token object in %v", body)
	access, _ := tok["access"].(string)
	refresh, _ := tok["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func errorMessage(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func credentials(user, pass string) string {
	b, _ := json.Marshal(credentialsRequest{Username: user, Password: pass})
	return string(b)
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	env := newTestEnv(t, plainHasher{})

	resp, body := env.do(t, http.MethodPost, "/auth/register", credentials("alice", strongPassword), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	regAccess, _ := tokenPair(t, body)

	resp, body = env.do(t, http.MethodPost, "/auth/login", credentials("alice", strongPassword), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access, refresh := tokenPair(t, body)

	// Login superseded the registration session.
	resp, body = env.do(t, http.MethodGet, "/me", "", regAccess)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", errorMessage(body))

	resp, body = env.do(t, http.MethodGet, "/me", "", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "PasswordHash")

	resp, body = env.do(t, http.MethodPost, "/auth/refresh", "", refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newAccess, newRefresh := tokenPair(t, body)
	assert.NotContains(t, body, "user")

	// The old pair is revoked by the rotation.
	resp, _ = env.do(t, http.MethodGet, "/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/auth/refresh", "", refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/me", "", newAccess)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Class separation at the HTTP boundary.
	resp, _ = env.do(t, http.MethodGet, "/me", "", newRefresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/auth/refresh", "", newAccess)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv(t, plainHasher{})

	resp, body := env.do(t, http.MethodPost, "/auth/register", credentials("bob", "short"), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(body), "at least 12 characters")

	resp, _ = env.do(t, http.MethodPost, "/auth/register", credentials("  ", strongPassword), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/register", `{"username":"bob","password":"x","extra":1}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/register", credentials("bob", strongPassword), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/auth/register", credentials("bob", strongPassword), "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username already taken", errorMessage(body))
}

func TestLoginRejections(t *testing.T) {
	env := newTestEnv(t, plainHasher{})
	_, err := env.users.Register("carol", strongPassword)
	require.NoError(t, err)

	resp, body := env.do(t, http.MethodPost, "/auth/login", credentials("carol", "Wrong-Passw0rd!"), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", errorMessage(body))

	resp, body = env.do(t, http.MethodPost, "/auth/login", credentials("nobody", strongPassword), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", errorMessage(body))

	resp, _ = env.do(t, http.MethodPost, "/auth/login", "{", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissingBearerIsDistinguished(t *testing.T) {
	env := newTestEnv(t, plainHasher{})

	resp, body := env.do(t, http.MethodGet, "/me", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing bearer token", errorMessage(body))

	resp, body = env.do(t, http.MethodPost, "/auth/refresh", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing bearer token", errorMessage(body))

	resp, body = env.do(t, http.MethodGet, "/me", "", "garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", errorMessage(body))
}

func TestRegistryOutage(t *testing.T) {
	env := newTestEnv(t, plainHasher{})
	resp, body := env.do(t, http.MethodPost, "/auth/register", credentials("dave", strongPassword), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	access, _ := tokenPair(t, body)

	env.mr.SetError("ERR simulated outage")

	resp, _ = env.do(t, http.MethodGet, "/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/auth/login", credentials("dave", strongPassword), "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", errorMessage(body))

	resp, body = env.do(t, http.MethodGet, "/system/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deps, _ := body["dependencies"].(map[string]any)
	assert.Equal(t, "down", deps["redis"])
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t, plainHasher{})

	resp, body := env.do(t, http.MethodGet, "/system/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	deps, _ := body["dependencies"].(map[string]any)
	assert.Equal(t, "up", deps["redis"])
	assert.Contains(t, body, "uptime")
	assert.Contains(t, body, "timestamp")

	resp, body = env.do(t, http.MethodGet, "/system/version", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "abc", body["git_hash"])

	resp, _ = env.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterWithArgon2(t *testing.T) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	env := newTestEnv(t, hasher)

	resp, _ := env.do(t, http.MethodPost, "/auth/register", credentials("erin", strongPassword), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	u, ok := env.users.ByUsername("erin")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))

	resp, _ = env.do(t, http.MethodPost, "/auth/login", credentials("erin", strongPassword), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/auth/login", credentials("erin", "Not-The-Passw0rd"), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDirectoryLookups(t *testing.T) {
	d := NewDirectory(plainHasher{})
	u, err := d.Register(" frank ", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "frank", u.Username)
	assert.NotEmpty(t, u.ID)

	got, ok := d.ByID(u.ID)
	require.True(t, ok)
	assert.Equal(t, u, got)

	_, ok = d.ByID("missing")
	assert.False(t, ok)

	_, err = d.Register("frank", strongPassword)
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = d.Register(strings.Repeat("x", maxUsernameRunes+1), strongPassword)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = d.Register("grace", "alllowercase-no-digits")
	assert.ErrorIs(t, err, password.ErrPolicy)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenslot"
	"github.com/MrEthical07/tokenslot/middleware"
	"github.com/MrEthical07/tokenslot/password"
)

const maxBodyBytes = 1 << 16

type handlers struct {
	engine  Engine
	users   *Directory
	logger  *slog.Logger
	build   BuildInfo
	now     func() time.Time
	started time.Time
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenBody struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type sessionResponse struct {
	User  *User     `json:"user,omitempty"`
	Token tokenBody `json:"token"`
}

type healthResponse struct {
	Status       string            `json:"status"`
	Uptime       int64             `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	Timestamp    int64             `json:"timestamp"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(w, r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.users.Register(in.Username, in.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserExists):
		middleware.WriteError(w, http.StatusConflict, "Username already taken")
		return
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, password.ErrPolicy):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.logger.ErrorContext(r.Context(), "register_failed", slog.String("err", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	pair, err := h.engine.IssueInitialSession(r.Context(), u.ID)
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: &u, Token: tokens(pair)})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(w, r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, ok := h.users.ByUsername(in.Username)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	pair, err := h.engine.Login(r.Context(), tokenslot.LoginRequest{
		Subject:      u.ID,
		Password:     in.Password,
		PasswordHash: u.PasswordHash,
	})
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: &u, Token: tokens(pair)})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.engine.Refresh(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: tokens(pair)})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, ok := h.users.ByID(subject)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	redisStatus := "up"
	if err := h.engine.Ping(r.Context()); err != nil {
		redisStatus = "down"
		h.logger.WarnContext(r.Context(), "health_redis_down", slog.String("err", err.Error()))
	}

	now := h.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Uptime:       int64(now.Sub(h.started) / time.Second),
		Dependencies: map[string]string{"redis": redisStatus},
		Timestamp:    now.Unix(),
	})
}

func (h *handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.build)
}

// sessionError maps engine errors from login, register and refresh.
func (h *handlers) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tokenslot.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, tokenslot.ErrRotationFailed), errors.Is(err, tokenslot.ErrEngineNotReady),
		errors.Is(err, context.DeadlineExceeded):
		h.logger.ErrorContext(r.Context(), "session_issue_failed", slog.String("err", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	default:
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrorMessage(err))
	}
}

func tokens(p *tokenslot.TokenPair) tokenBody {
	return tokenBody{Access: p.AccessToken, Refresh: p.RefreshToken}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict rejects unknown fields and oversized bodies.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

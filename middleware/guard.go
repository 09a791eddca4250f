package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/MrEthical07/tokenslot"
)

// Authenticator is satisfied by *tokenslot.Engine.
type Authenticator interface {
	Authenticate(ctx context.Context, header string, class tokenslot.TokenClass) (*tokenslot.AuthResult, error)
}

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*tokenslot.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokenslot.AuthResult)
	return res, ok && res != nil
}

// SubjectFromContext returns the authenticated user id placed by Guard.
func SubjectFromContext(ctx context.Context) (string, bool) {
	res, ok := AuthResultFromContext(ctx)
	if !ok {
		return "", false
	}
	return res.Subject, true
}

// Guard admits requests whose Authorization header carries a current token of class.
// Rejections are written as a 401 JSON error; only a missing token is distinguished.
func Guard(auth Authenticator, class tokenslot.TokenClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := r.Context()
			if ip := clientIP(r); ip != "" {
				ctx = tokenslot.WithClientIP(ctx, ip)
			}

			res, err := auth.Authenticate(ctx, r.Header.Get("Authorization"), class)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrorMessage(err))
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteError writes {"error":{"code":status,"message":msg}}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: status, Message: msg}})
}

// ErrorMessage is the client-facing message for an Authenticate error.
func ErrorMessage(err error) string {
	if errors.Is(tokenslot.PublicError(err), tokenslot.ErrMissingToken) {
		return "Missing bearer token"
	}
	return "Unauthorized"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"net/http"

	"github.com/MrEthical07/tokenslot"
)

// RequireAccess guards resource routes.
func RequireAccess(auth Authenticator) func(http.Handler) http.Handler {
	return Guard(auth, tokenslot.Access)
}

// RequireRefresh guards the token refresh route.
func RequireRefresh(auth Authenticator) func(http.Handler) http.Handler {
	return Guard(auth, tokenslot.Refresh)
}

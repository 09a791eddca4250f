// Package middleware adapts Engine.Authenticate to net/http.
//
//   - [RequireAccess] admits requests carrying the current access token.
//   - [RequireRefresh] admits requests carrying the current refresh token.
//   - [Guard] is the class-parameterized form of both.
//
// On success the [tokenslot.AuthResult] is stored in the request context
// ([AuthResultFromContext], [SubjectFromContext]). On failure a 401 JSON error is written:
//
//	{"error":{"code":401,"message":"Unauthorized"}}
//
// A missing or non-Bearer header reports "Missing bearer token"; every other failure
// reports "Unauthorized" so clients cannot tell which check failed.
//
// # What this package must NOT do
//
//   - Parse tokens or touch the registry directly.
//   - Echo the precise rejection reason to clients.
package middleware

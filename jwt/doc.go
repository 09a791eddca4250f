// Package jwt signs and verifies the compact HS256 tokens carried in the Authorization
// header, and issues fresh claim sets for the two token classes.
//
// # Claim set
//
// Every token carries exactly four claims: sub, jti, exp and token_type. The jti is a
// fresh random identifier generated at issuance and is used only as a revocation handle.
//
// # Architecture boundaries
//
// This package is a pure function of (claims, secret). It never talks to the registry and
// never decides whether a token is still current; that belongs to the registry package and
// the Engine.
//
// # What this package must NOT do
//
//   - Perform network or disk I/O.
//   - Accept any signing algorithm other than HS256.
//   - Distinguish failure causes to end users (callers collapse them).
package jwt

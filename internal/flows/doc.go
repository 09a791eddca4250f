// Package flows contains the orchestration for every Engine operation as plain functions.
//
// Each flow (RunRotate, RunAuthenticate, RunLogin) accepts a typed dependency struct and
// returns a classified result. The Engine maps results onto public errors, metrics, logs
// and audit events.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenslot (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency interfaces.
package flows

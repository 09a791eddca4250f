// Package registry records, per (subject, token class), the single session id that is
// currently considered live, on top of a plain key-value store.
//
// # Key space
//
// Keys have the form "{token_type}_jti:{user_id}" and map to one jti string. Publishing a
// new jti overwrites the previous one, which silently invalidates every earlier token of
// that class for that subject. There is no revocation list.
//
// # Failure model
//
// Every operation is one round trip bounded by the configured timeout. Store failures and
// timeouts surface as [ErrUnavailable]; an absent key is never an error and is reported as
// "not current".
//
// # What this package must NOT do
//
//   - Parse or sign tokens.
//   - Use compare-and-swap or multi-key transactions.
//   - Treat a store failure as a positive answer.
package registry

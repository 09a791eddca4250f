// Package tokenslot issues HS256 access/refresh token pairs and enforces a single live
// session per user and token class.
//
// Every issuance publishes the new token's session id (jti) into a Redis-backed
// registry under "{token_type}_jti:{user_id}", overwriting the previous one. A token is
// accepted only when its signature and expiry verify, its class matches the route, and
// its jti equals the registry entry. Issuing a new pair therefore revokes every older
// token of the same user without a deny-list.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// tokenslot is the public surface: [Engine], [Builder], [Config] and value types.
// Token codec lives in jwt/, the registry in registry/, and flow orchestration, audit
// dispatch and metric storage under internal/.
//
// # What this package must NOT do
//
//   - Log or audit bearer tokens or the signing secret.
//   - Accept a token when the registry cannot be reached.
//   - Hold locks across registry round trips.
//
// # Concurrency
//
// Rotation writes the access entry and then the refresh entry as two independent
// operations. Two concurrent rotations for the same user can interleave and leave the
// access entry from one and the refresh entry from the other; each entry is still a
// valid session id and the next rotation repairs the pair.
package tokenslot

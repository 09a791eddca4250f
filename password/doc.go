// Package password hashes and verifies passwords with Argon2id and enforces the
// registration strength rules.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.CheckPassword] is the credential check used by the engine's Login.
// [CheckStrength] is applied when a password is first set.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Log plaintext passwords.
package password

// Package audit implements async delivery of session lifecycle events.
//
// A [Dispatcher] relays [Event] values to a caller-supplied [Sink] from a single
// goroutine, with drop-if-full or block-if-full semantics. The package does not decide
// which events to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Record bearer tokens or secrets.
//   - Import tokenslot or any sibling internal package.
package audit

// Package internal holds the parts of tokenslot that are private to the module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: tokenslot-server configuration (YAML + env via cleanenv)
//   - flows: pure-function orchestrators for rotate, authenticate and login
//   - metrics: lock-free counters and the authenticate latency histogram
//   - server: HTTP routes and the demo user directory for tokenslot-server
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenslot API.
//   - Be imported by any package outside the tokenslot module.
package internal

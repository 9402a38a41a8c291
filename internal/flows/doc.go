// Package flows contains pure-function orchestrators for the Engine's request path.
//
// Each flow function (RunAuthenticate, RunRefresh, RunMutate) accepts a typed
// dependency struct and returns a result carrying either the outcome or a classified
// failure kind. The root package maps failure kinds to its public errors, metrics and
// audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec and the cart store. They do NOT own either
// of them; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import woosession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows

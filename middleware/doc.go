// Package middleware adapts woosession.Engine session handling to net/http.
//
// # Guards
//
//   - [Session]: accepts requests with no session header as fresh owners.
//   - [RequireSession]: rejects requests with no session header.
//
// Each guard reads the woocommerce-session header, calls Engine.Authenticate, injects
// the owner into the request context and writes the refreshed token on the response.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT validate tokens
// itself; all decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access the cart store.
//   - Let a rejected request reach the wrapped handler.
package middleware

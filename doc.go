// Package woosession implements token-carried guest cart sessions in the style of the
// WooCommerce GraphQL session handler.
//
// A customer without a session sends no header. The first successful cart write creates
// a cart under a new anonymous customer id and returns a signed HS256 token in the
// woocommerce-session response header. The client echoes it back as
// "woocommerce-session: Session <token>" on every later request; each accepted request
// receives a re-issued token, so the session slides forward while it is in use.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// woosession is the public surface. It exposes [Engine], [Builder], [Config], the
// operation inputs, payloads and views. Token encoding lives in package jwt, cart state
// and its stores in package cart, and request orchestration and audit dispatch under
// internal/.
//
// # What this package must NOT do
//
//   - Read or write a cart before the session header has been validated.
//   - Log or audit raw session tokens.
//   - Import any sub-package that re-imports woosession (no import cycles).
//
// # Performance contract
//
// Token validation is CPU-only. Each cart operation costs at most one store round trip
// plus retries on write contention.
package woosession

// Package jwt issues and verifies cart session tokens: compact HS256 JWS values carrying
// the registered iss/iat/nbf/exp claims and a data.customer_id subject.
//
// # Validation order
//
// [Codec.Decode] checks structure, then the signature, then the time window (with a
// symmetric leeway on nbf and exp). Semantic checks that a valid signature cannot vouch for,
// issuer equality and a non-empty customer id, live in [CheckClaims] and are always run by
// the caller after Decode.
//
// # What this package must NOT do
//
//   - Access session storage or perform I/O.
//   - Import woosession or cart (no upward imports).
//   - Accept any algorithm other than HS256.
package jwt

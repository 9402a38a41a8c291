// Package cart holds guest cart state and its persistence.
//
// A [Session] is keyed by the opaque customer id carried in the session token. Line items
// are addressed by a content-derived key (see [ItemKey]); removing an item moves it to a
// removed set so it can be restored later.
//
// # Stores
//
// [Store] is the persistence contract. [MemoryStore] serves tests and single-process
// deployments; [RedisStore] persists JSON blobs with a sliding TTL. Both apply
// [Store.Update] as one atomic step per customer id: the mutation closure runs against a
// private copy and nothing is written when it fails.
//
// # What this package must NOT do
//
//   - Interpret session tokens or HTTP headers.
//   - Import woosession or jwt (no upward imports).
//   - Look up products or coupons; callers resolve them and pass plain values in.
package cart

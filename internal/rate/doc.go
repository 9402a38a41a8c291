// Package rate implements Redis-backed fixed-window counters that throttle cart
// session creation and invalid session tokens per client IP.
//
// Each budget is one INCR key with a TTL set on the first hit of the window, so a
// counter resets on its own when the window ends.
package rate

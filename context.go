package woosession

import (
	"context"
	"sync/atomic"
)

type clientIPContextKey struct{}
type ownerContextKey struct{}
type sessionStateContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine records it on
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithOwner binds a validated cart owner to ctx. Only code that has run
// [Engine.Authenticate] should call it.
func WithOwner(ctx context.Context, owner *Owner) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFromContext returns the cart owner bound by [WithOwner].
func OwnerFromContext(ctx context.Context) (*Owner, bool) {
	if ctx == nil {
		return nil, false
	}
	owner, ok := ctx.Value(ownerContextKey{}).(*Owner)
	return owner, ok && owner != nil
}

// sessionState records, for one request, whether a fresh owner's cart was written.
type sessionState struct {
	established atomic.Bool
}

// WithSessionState prepares ctx so that [MarkEstablished] can be observed by the caller
// through the returned function.
func WithSessionState(ctx context.Context) (context.Context, func() bool) {
	st := &sessionState{}
	return context.WithValue(ctx, sessionStateContextKey{}, st), st.established.Load
}

// MarkEstablished records that a fresh owner's session now exists, so a token must be
// sent back. Cart operations call it on every successful write; handlers that persist
// state by other means may call it too.
func MarkEstablished(ctx context.Context) {
	if ctx == nil {
		return
	}
	if st, ok := ctx.Value(sessionStateContextKey{}).(*sessionState); ok {
		st.established.Store(true)
	}
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

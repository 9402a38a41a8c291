package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/hwsiew/woosession"
)

// Session validates the woocommerce-session header before next runs.
//
// A request without the header continues as a fresh owner. A request whose header is
// present but invalid is answered with 401 and a JSON error body; next never runs. For
// accepted sessions a re-issued token is written to the response header before the
// first byte of the body. Fresh owners only get one if next called
// [woosession.MarkEstablished].
func Session(engine *woosession.Engine) func(http.Handler) http.Handler {
	return guard(engine, false)
}

// RequireSession is like [Session] but also rejects requests that carry no session
// header, for routes that only make sense on an existing cart.
func RequireSession(engine *woosession.Engine) func(http.Handler) http.Handler {
	return guard(engine, true)
}

func guard(engine *woosession.Engine, requireToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusInternalServerError, woosession.ErrEngineNotReady)
				return
			}

			ctx := woosession.WithClientIP(r.Context(), clientIP(r))
			header := r.Header.Get(engine.HeaderName())
			if requireToken && header == "" {
				writeError(w, http.StatusUnauthorized, woosession.ErrMalformedToken)
				return
			}

			owner, err := engine.Authenticate(ctx, header)
			if err != nil {
				status := http.StatusUnauthorized
				switch woosession.ErrorCode(err) {
				case woosession.CodeInternal:
					status = http.StatusInternalServerError
				case woosession.CodeRateLimited:
					status = http.StatusTooManyRequests
				}
				writeError(w, status, err)
				return
			}

			ctx, established := woosession.WithSessionState(ctx)
			ctx = woosession.WithOwner(ctx, owner)

			sw := &sessionWriter{
				ResponseWriter: w,
				ctx:            ctx,
				engine:         engine,
				owner:          owner,
				established:    established,
			}
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.emit()
		})
	}
}

// sessionWriter adds the refreshed token header just before headers are sent.
type sessionWriter struct {
	http.ResponseWriter
	ctx         context.Context
	engine      *woosession.Engine
	owner       *woosession.Owner
	established func() bool
	once        sync.Once
}

func (w *sessionWriter) emit() {
	w.once.Do(func() {
		if w.owner.Fresh && !w.established() {
			return
		}
		token, err := w.engine.Refresh(w.ctx, w.owner)
		if err != nil {
			return
		}
		w.ResponseWriter.Header().Set(w.engine.HeaderName(), token)
	})
}

func (w *sessionWriter) WriteHeader(status int) {
	w.emit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.emit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type errorBody struct {
	Errors []woosession.ResponseError `json:"errors"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Errors: []woosession.ResponseError{woosession.NewResponseError(err)}})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

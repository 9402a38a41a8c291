package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/hwsiew/woosession"
	"go.uber.org/zap"
)

// graphQLRequest is the accepted request body. Query is ignored: the operation is
// selected by name.
type graphQLRequest struct {
	Query         string          `json:"query,omitempty"`
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables,omitempty"`
}

func (h *handler) graphql(w http.ResponseWriter, r *http.Request) {
	var body graphQLRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&body); err != nil {
		respondErrors(w, http.StatusBadRequest, fmt.Errorf("%w: %v", woosession.ErrBadRequest, err))
		return
	}

	ctx := woosession.WithClientIP(r.Context(), remoteHost(r))
	resp := h.engine.Execute(ctx, woosession.Request{
		Operation: body.OperationName,
		Variables: body.Variables,
		Header:    r.Header,
	})

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handler) cart(w http.ResponseWriter, r *http.Request) {
	owner, ok := woosession.OwnerFromContext(r.Context())
	if !ok {
		respondErrors(w, http.StatusUnauthorized, woosession.ErrNoOwner)
		return
	}
	view, err := h.engine.Cart(r.Context(), owner)
	if err != nil {
		respondErrors(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, woosession.Response{Data: map[string]any{woosession.OpCart: view}})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"store_latency": latency.String(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondErrors(w http.ResponseWriter, status int, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	respondJSON(w, status, woosession.Response{Errors: []woosession.ResponseError{woosession.NewResponseError(err)}})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

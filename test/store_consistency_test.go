//go:build integration
// +build integration

package test

import (
	"testing"

	"github.com/hwsiew/woosession"
)

// TestTokensPortableAcrossEngines verifies any engine sharing the secret and Redis can
// serve a session started on another one.
func TestTokensPortableAcrossEngines(t *testing.T) {
	_, rdb := newIntegrationRedis(t)
	first := newIntegrationEngine(t, rdb, integrationSecret)
	second := newIntegrationEngine(t, rdb, integrationSecret)

	add := execute(t, first, woosession.OpAddToCart, `{"productId":1,"quantity":3}`, "")
	token := add.Header.Get(woosession.SessionHeader)
	if token == "" {
		t.Fatalf("no token: %+v", add.Errors)
	}

	read := execute(t, second, woosession.OpCart, "", woosession.SessionPrefix+token)
	if len(read.Errors) != 0 {
		t.Fatalf("second engine rejected the session: %+v", read.Errors)
	}
	view := read.Data[woosession.OpCart].(*woosession.CartView)
	if view.Contents.ItemCount != 3 {
		t.Fatalf("second engine sees %d items", view.Contents.ItemCount)
	}
	if read.Header.Get(woosession.SessionHeader) == "" {
		t.Fatal("second engine must refresh the token")
	}
}

// TestForeignSecretRejected verifies a token signed by a different deployment is
// refused even when both share the cart store.
func TestForeignSecretRejected(t *testing.T) {
	_, rdb := newIntegrationRedis(t)
	ours := newIntegrationEngine(t, rdb, integrationSecret)
	theirs := newIntegrationEngine(t, rdb, "another-deployment-secret-value!!")

	add := execute(t, theirs, woosession.OpAddToCart, `{"productId":1,"quantity":1}`, "")
	token := add.Header.Get(woosession.SessionHeader)

	resp := execute(t, ours, woosession.OpCart, "", woosession.SessionPrefix+token)
	if resp.Data != nil || len(resp.Errors) != 1 {
		t.Fatalf("expected rejection only, got %+v", resp)
	}
	if resp.Errors[0].Extensions.Code != woosession.CodeInvalidSignature {
		t.Fatalf("code = %q", resp.Errors[0].Extensions.Code)
	}
}

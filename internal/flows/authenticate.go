package flows

import (
	"strings"

	"github.com/hwsiew/woosession/jwt"
)

// AuthenticateFailureKind classifies authentication failures for root-level mapping.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailurePrefix
	AuthenticateFailureDecode
	AuthenticateFailureClaims
	AuthenticateFailureIdentity
)

// AuthenticateResult is either a resolved owner identity or a classified failure.
type AuthenticateResult struct {
	Failure    AuthenticateFailureKind
	Err        error
	CustomerID string
	Fresh      bool
	Claims     *jwt.Claims
}

// AuthenticateDeps captures session header validation dependencies.
type AuthenticateDeps struct {
	Prefix        string
	Decode        func(string) (*jwt.Claims, error)
	CheckClaims   func(*jwt.Claims) error
	NewCustomerID func() (string, error)
	Malformed     error
}

// RunAuthenticate validates a raw session header value.
//
// An empty header yields a fresh identity. Anything else must carry Prefix followed by a
// token that decodes and passes the claim checks.
func RunAuthenticate(header string, deps AuthenticateDeps) AuthenticateResult {
	if header == "" {
		id, err := deps.NewCustomerID()
		if err != nil {
			return AuthenticateResult{Failure: AuthenticateFailureIdentity, Err: err}
		}
		return AuthenticateResult{CustomerID: id, Fresh: true}
	}

	token, ok := strings.CutPrefix(header, deps.Prefix)
	if !ok || strings.TrimSpace(token) == "" || strings.ContainsAny(token, " \t") {
		return AuthenticateResult{Failure: AuthenticateFailurePrefix, Err: deps.Malformed}
	}

	claims, err := deps.Decode(token)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureDecode, Err: err}
	}
	if err := deps.CheckClaims(claims); err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureClaims, Err: err}
	}

	return AuthenticateResult{CustomerID: claims.CustomerID(), Claims: claims}
}

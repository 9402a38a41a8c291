package flows

import (
	"errors"

	"github.com/hwsiew/woosession/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoIdentity
	RefreshFailureIssue
)

// RefreshResult carries the re-issued token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Token   string
	Claims  *jwt.Claims
}

// RefreshDeps captures token re-issue dependencies.
type RefreshDeps struct {
	Issue func(customerID string) (string, *jwt.Claims, error)
}

var errNoIdentity = errors.New("refresh requires a customer id")

// RunRefresh signs a new token with fresh iat/nbf/exp for customerID.
func RunRefresh(customerID string, deps RefreshDeps) RefreshResult {
	if customerID == "" {
		return RefreshResult{Failure: RefreshFailureNoIdentity, Err: errNoIdentity}
	}

	token, claims, err := deps.Issue(customerID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err}
	}
	return RefreshResult{Token: token, Claims: claims}
}

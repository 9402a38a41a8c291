package flows

import (
	"context"
	"errors"

	"github.com/hwsiew/woosession/cart"
)

// MutateFailureKind separates data-level rejections from backend failures.
type MutateFailureKind int

const (
	MutateFailureNone MutateFailureKind = iota
	MutateFailureDomain
	MutateFailureStore
)

// MutateResult holds the committed session or the failure.
type MutateResult struct {
	Failure MutateFailureKind
	Err     error
	Session *cart.Session
}

// MutateStore is the slice of cart.Store used by RunMutate.
type MutateStore interface {
	Update(ctx context.Context, customerID string, fn func(*cart.Session) error) (*cart.Session, error)
}

// MutateDeps captures cart mutation dependencies.
type MutateDeps struct {
	Store MutateStore
	// StoreErrors are the backend error classes. Anything else returned by Update is the
	// mutation's own rejection.
	StoreErrors []error
}

// RunMutate applies fn to the customer's cart atomically.
func RunMutate(ctx context.Context, customerID string, fn func(*cart.Session) error, deps MutateDeps) MutateResult {
	sess, err := deps.Store.Update(ctx, customerID, fn)
	if err == nil {
		return MutateResult{Session: sess}
	}
	for _, target := range deps.StoreErrors {
		if errors.Is(err, target) {
			return MutateResult{Failure: MutateFailureStore, Err: err}
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return MutateResult{Failure: MutateFailureStore, Err: err}
	}
	return MutateResult{Failure: MutateFailureDomain, Err: err}
}

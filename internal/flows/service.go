package flows

import (
	"context"

	"github.com/hwsiew/woosession/cart"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.Decode != nil &&
		s.deps.Refresh.Issue != nil &&
		s.deps.Mutate.Store != nil
}

func (s Service) Authenticate(header string) AuthenticateResult {
	return RunAuthenticate(header, s.deps.Authenticate)
}

func (s Service) Refresh(customerID string) RefreshResult {
	return RunRefresh(customerID, s.deps.Refresh)
}

func (s Service) Mutate(ctx context.Context, customerID string, fn func(*cart.Session) error) MutateResult {
	return RunMutate(ctx, customerID, fn, s.deps.Mutate)
}

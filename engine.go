package woosession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hwsiew/woosession/cart"
	internalaudit "github.com/hwsiew/woosession/internal/audit"
	"github.com/hwsiew/woosession/internal/flows"
	"github.com/hwsiew/woosession/internal/rate"
	"github.com/hwsiew/woosession/jwt"
	"go.uber.org/zap"
)

// Engine validates session tokens and runs cart operations on behalf of the token's
// customer.
//
// Engine instances are created by [Builder.Build] and are safe for concurrent use.
type Engine struct {
	config  Config
	codec   *jwt.Codec
	store   cart.Store
	catalog Catalog
	coupons CouponProvider
	flows   flows.Service
	limiter *rate.Limiter
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// AuditDropped reports how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// HeaderName is the request and response header carrying the session token.
func (e *Engine) HeaderName() string {
	if e == nil || e.config.Token.HeaderName == "" {
		return SessionHeader
	}
	return e.config.Token.HeaderName
}

// Ping checks the cart store when it supports health checks.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	p, ok := e.store.(interface {
		Ping(context.Context) (time.Duration, error)
	})
	if !ok {
		return 0, nil
	}
	return p.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// Authenticate validates the raw value of the session header.
//
// An empty header yields a fresh [Owner] with a new customer id. Otherwise the value
// must be "Session <token>" with a token signed by this engine, within its time window,
// issued by the configured origin and naming a customer. Every rejection matches
// [ErrSessionRejected] and one of the token errors.
func (e *Engine) Authenticate(ctx context.Context, header string) (*Owner, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	if header != "" {
		if err := e.checkRejections(ctx); err != nil {
			return nil, err
		}
	}

	res := e.flows.Authenticate(header)
	switch res.Failure {
	case flows.AuthenticateFailureNone:
	case flows.AuthenticateFailureIdentity:
		e.logger.Error("customer id generation failed", zap.Error(res.Err))
		return nil, fmt.Errorf("new customer id: %w", res.Err)
	default:
		err := fmt.Errorf("%w: %w", ErrSessionRejected, res.Err)
		e.metricInc(rejectionMetric(res.Err))
		e.logger.Info("session rejected",
			zap.String("code", ErrorCode(res.Err)),
			zap.String("ip", clientIPFromContext(ctx)),
		)
		e.emitAudit(ctx, auditEventSessionRejected, "", false, "", res.Err, nil)
		e.recordRejection(ctx)
		return nil, err
	}

	if !res.Fresh {
		e.metricInc(MetricSessionAccepted)
	}
	return &Owner{
		CustomerID: res.CustomerID,
		Fresh:      res.Fresh,
		Claims:     res.Claims,
	}, nil
}

// Refresh issues a new token for owner with fresh iat, nbf and exp.
func (e *Engine) Refresh(ctx context.Context, owner *Owner) (string, error) {
	if e == nil || !e.flows.Initialized() {
		return "", ErrEngineNotReady
	}
	if owner == nil {
		return "", ErrEngineNotReady
	}

	res := e.flows.Refresh(owner.CustomerID)
	if res.Failure != flows.RefreshFailureNone {
		e.logger.Error("session token issue failed",
			zap.String("customer_id", owner.CustomerID),
			zap.Error(res.Err),
		)
		return "", res.Err
	}

	if owner.Fresh {
		e.metricInc(MetricSessionEstablished)
		e.emitAudit(ctx, auditEventSessionEstablished, "", true, owner.CustomerID, nil, nil)
	} else {
		e.metricInc(MetricSessionRefreshed)
	}
	return res.Token, nil
}

// IssueToken returns a token for an existing customer id. It is meant for tooling that
// needs to hand a session to a client out of band.
func (e *Engine) IssueToken(customerID string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	token, _, err := e.codec.Issue(customerID)
	return token, err
}

/*
====================================
RATE LIMITS
====================================
*/

// checkRejections refuses clients that already sent too many invalid tokens. Limiter
// outages let the request through.
func (e *Engine) checkRejections(ctx context.Context) error {
	ip := clientIPFromContext(ctx)
	err := e.limiter.CheckRejections(ctx, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricSessionThrottled)
		e.logger.Info("session throttled", zap.String("ip", ip))
		e.emitAudit(ctx, auditEventSessionThrottled, "", false, "", err, nil)
		return fmt.Errorf("%w: %w", ErrSessionRejected, err)
	default:
		e.logger.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
}

func (e *Engine) recordRejection(ctx context.Context) {
	if err := e.limiter.RecordRejection(ctx, clientIPFromContext(ctx)); err != nil {
		e.logger.Warn("rate limiter unavailable", zap.Error(err))
	}
}

// checkNewSession charges one cart creation to the client IP.
func (e *Engine) checkNewSession(ctx context.Context) error {
	ip := clientIPFromContext(ctx)
	err := e.limiter.CheckNewSession(ctx, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricSessionThrottled)
		e.logger.Info("new session throttled", zap.String("ip", ip))
		return err
	default:
		e.logger.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
}

// isStoreFailure reports whether err came from the cart backend rather than the cart.
func isStoreFailure(err error) bool {
	return errors.Is(err, cart.ErrStoreUnavailable) ||
		errors.Is(err, cart.ErrSessionCorrupt) ||
		errors.Is(err, cart.ErrUpdateConflict) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

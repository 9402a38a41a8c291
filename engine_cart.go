package woosession

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hwsiew/woosession/cart"
	"github.com/hwsiew/woosession/internal/flows"
	"go.uber.org/zap"
)

// Cart operations. Each one expects an owner produced by [Engine.Authenticate] and
// never sees the token itself. A mutation either commits in full or not at all.

// AddToCart adds in.Quantity of the product, or of one of its variations, and returns
// the resulting line. Adding a configuration already in the cart increments that line.
func (e *Engine) AddToCart(ctx context.Context, owner *Owner, in AddToCartInput) (*AddToCartPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}

	line, err := e.priceLine(ctx, in)
	if err != nil {
		e.finish(ctx, OpAddToCart, owner, start, err)
		return nil, err
	}

	var added cart.Item
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		var err error
		added, err = s.AddItem(line, e.now())
		return err
	})
	e.finish(ctx, OpAddToCart, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &AddToCartPayload{
		ClientMutationID: in.ClientMutationID,
		CartItem:         newItemView(added),
		Cart:             newCartView(sess),
	}, nil
}

// RemoveItemsFromCart moves the named lines to the removed set. Unknown keys are
// skipped, so callers must inspect CartItems to learn what was removed.
func (e *Engine) RemoveItemsFromCart(ctx context.Context, owner *Owner, in RemoveItemsFromCartInput) (*RemoveItemsFromCartPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}
	if !in.All && len(in.Keys) == 0 {
		err := fmt.Errorf("%w: keys or all is required", ErrBadRequest)
		e.finish(ctx, OpRemoveItemsFromCart, owner, start, err)
		return nil, err
	}

	var removed []cart.Item
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		if in.All {
			removed = s.RemoveAll(e.now())
		} else {
			removed = s.RemoveItems(in.Keys, e.now())
		}
		return nil
	})
	e.finish(ctx, OpRemoveItemsFromCart, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &RemoveItemsFromCartPayload{
		ClientMutationID: in.ClientMutationID,
		CartItems:        newItemViews(removed),
		Cart:             newCartView(sess),
	}, nil
}

// RestoreCartItems moves previously removed lines back into the cart. Unknown keys are
// skipped.
func (e *Engine) RestoreCartItems(ctx context.Context, owner *Owner, in RestoreCartItemsInput) (*RestoreCartItemsPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}
	if len(in.Keys) == 0 {
		err := fmt.Errorf("%w: keys is required", ErrBadRequest)
		e.finish(ctx, OpRestoreCartItems, owner, start, err)
		return nil, err
	}

	var restored []cart.Item
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		restored = s.RestoreItems(in.Keys, e.now())
		return nil
	})
	e.finish(ctx, OpRestoreCartItems, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &RestoreCartItemsPayload{
		ClientMutationID: in.ClientMutationID,
		CartItems:        newItemViews(restored),
		Cart:             newCartView(sess),
	}, nil
}

// UpdateItemQuantities sets the quantity of each named line. A zero quantity removes
// the line. An unknown key fails the whole batch.
func (e *Engine) UpdateItemQuantities(ctx context.Context, owner *Owner, in UpdateItemQuantitiesInput) (*UpdateItemQuantitiesPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		err := fmt.Errorf("%w: items is required", ErrBadRequest)
		e.finish(ctx, OpUpdateItemQuantities, owner, start, err)
		return nil, err
	}

	changes := make([]cart.QuantityChange, len(in.Items))
	for i, item := range in.Items {
		changes[i] = cart.QuantityChange{Key: strings.TrimSpace(item.Key), Quantity: item.Quantity}
	}

	var updated, removed []cart.Item
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		var err error
		updated, removed, err = s.SetQuantities(changes, e.now())
		return err
	})
	e.finish(ctx, OpUpdateItemQuantities, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &UpdateItemQuantitiesPayload{
		ClientMutationID: in.ClientMutationID,
		Updated:          newItemViews(updated),
		Removed:          newItemViews(removed),
		Items:            newItemViews(sess.Items),
		Cart:             newCartView(sess),
	}, nil
}

// EmptyCart clears lines, removed lines, fees and coupons, and returns the cart as it
// was before.
func (e *Engine) EmptyCart(ctx context.Context, owner *Owner, in EmptyCartInput) (*EmptyCartPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}

	var deleted *CartView
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		deleted = newCartView(s)
		s.Empty(e.now())
		return nil
	})
	e.finish(ctx, OpEmptyCart, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &EmptyCartPayload{
		ClientMutationID: in.ClientMutationID,
		DeletedCart:      deleted,
		Cart:             newCartView(sess),
	}, nil
}

// AddFee adds a named surcharge. Fee names must be unique per cart.
func (e *Engine) AddFee(ctx context.Context, owner *Owner, in AddFeeInput) (*AddFeePayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}

	amount, ok := toMinor(in.Amount)
	if !ok {
		e.finish(ctx, OpAddFee, owner, start, ErrInvalidFee)
		return nil, ErrInvalidFee
	}

	var fee cart.Fee
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		var err error
		fee, err = s.AddFee(cart.Fee{
			Name:     in.Name,
			Amount:   amount,
			Taxable:  in.Taxable,
			TaxClass: in.TaxClass,
		}, e.now())
		return err
	})
	e.finish(ctx, OpAddFee, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &AddFeePayload{
		ClientMutationID: in.ClientMutationID,
		CartFee:          newFeeView(fee),
		Cart:             newCartView(sess),
	}, nil
}

// ApplyCoupon applies a known coupon once.
func (e *Engine) ApplyCoupon(ctx context.Context, owner *Owner, in ApplyCouponInput) (*ApplyCouponPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}

	coupon, err := e.lookupCoupon(ctx, in.Code)
	if err != nil {
		e.finish(ctx, OpApplyCoupon, owner, start, err)
		return nil, err
	}
	applied := cart.AppliedCoupon{
		Code:         cart.NormalizeCouponCode(coupon.Code),
		DiscountType: coupon.DiscountType,
		Amount:       coupon.Amount,
	}

	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		return s.ApplyCoupon(applied, e.now())
	})
	e.finish(ctx, OpApplyCoupon, owner, start, err)
	if err != nil {
		return nil, err
	}

	return &ApplyCouponPayload{
		ClientMutationID: in.ClientMutationID,
		Applied:          newCouponView(applied),
		Cart:             newCartView(sess),
	}, nil
}

// RemoveCoupons drops the named coupons. Codes that are not applied are skipped.
func (e *Engine) RemoveCoupons(ctx context.Context, owner *Owner, in RemoveCouponsInput) (*RemoveCouponsPayload, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}
	if len(in.Codes) == 0 {
		err := fmt.Errorf("%w: codes is required", ErrBadRequest)
		e.finish(ctx, OpRemoveCoupons, owner, start, err)
		return nil, err
	}

	var removed []string
	sess, err := e.mutate(ctx, owner, func(s *cart.Session) error {
		removed = s.RemoveCoupons(in.Codes, e.now())
		return nil
	})
	e.finish(ctx, OpRemoveCoupons, owner, start, err)
	if err != nil {
		return nil, err
	}
	if removed == nil {
		removed = []string{}
	}

	return &RemoveCouponsPayload{
		ClientMutationID: in.ClientMutationID,
		Removed:          removed,
		Cart:             newCartView(sess),
	}, nil
}

// Cart returns the owner's cart. A fresh owner has no cart yet and gets an empty view
// without touching the store.
func (e *Engine) Cart(ctx context.Context, owner *Owner) (*CartView, error) {
	start := time.Now()
	if err := e.checkOwner(owner); err != nil {
		return nil, err
	}
	if owner.Fresh {
		e.finish(ctx, OpCart, owner, start, nil)
		return newCartView(nil), nil
	}

	sess, err := e.store.Resolve(ctx, owner.CustomerID)
	e.finish(ctx, OpCart, owner, start, err)
	if err != nil {
		return nil, err
	}
	return newCartView(sess), nil
}

func (e *Engine) checkOwner(owner *Owner) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if owner == nil || owner.CustomerID == "" {
		return ErrNoOwner
	}
	return nil
}

func (e *Engine) mutate(ctx context.Context, owner *Owner, fn func(*cart.Session) error) (*cart.Session, error) {
	if owner.Fresh {
		if err := e.checkNewSession(ctx); err != nil {
			return nil, err
		}
	}
	res := e.flows.Mutate(ctx, owner.CustomerID, fn)
	if res.Failure != flows.MutateFailureNone {
		return nil, res.Err
	}
	return res.Session, nil
}

func (e *Engine) priceLine(ctx context.Context, in AddToCartInput) (cart.Item, error) {
	if in.Quantity <= 0 {
		return cart.Item{}, ErrInvalidQuantity
	}
	if in.ProductID <= 0 {
		return cart.Item{}, fmt.Errorf("%w: %d", ErrInvalidProduct, in.ProductID)
	}
	if e.catalog == nil {
		return cart.Item{}, fmt.Errorf("%w: no catalog configured", ErrInvalidProduct)
	}

	product, err := e.catalog.Product(ctx, in.ProductID)
	if err != nil {
		return cart.Item{}, err
	}
	line, err := resolveLine(product, in.VariationID, in.Variation)
	if err != nil {
		return cart.Item{}, err
	}
	line.Quantity = in.Quantity
	line.ExtraData = in.ExtraData
	return line, nil
}

func (e *Engine) lookupCoupon(ctx context.Context, code string) (Coupon, error) {
	code = cart.NormalizeCouponCode(code)
	if code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrBadRequest)
	}
	if e.coupons == nil {
		return Coupon{}, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	return e.coupons.Coupon(ctx, code)
}

// finish records metrics, logs and audit for one cart operation. A successful write by
// a fresh owner marks the session as established.
func (e *Engine) finish(ctx context.Context, op string, owner *Owner, start time.Time, err error) {
	e.metricObserve(MetricOperationLatency, time.Since(start))

	if err == nil {
		if id, ok := operationMetric(op); ok {
			e.metricInc(id)
		}
		if op == OpCart {
			return
		}
		if owner.Fresh {
			MarkEstablished(ctx)
		}
		e.emitAudit(ctx, auditEventCartMutation, op, true, owner.CustomerID, nil, nil)
		return
	}

	if isStoreFailure(err) {
		e.metricInc(MetricStoreFailure)
		e.logger.Error("cart store failure",
			zap.String("operation", op),
			zap.String("customer_id", owner.CustomerID),
			zap.Error(err),
		)
	} else {
		e.metricInc(MetricOperationFailure)
		e.logger.Debug("cart operation rejected",
			zap.String("operation", op),
			zap.String("customer_id", owner.CustomerID),
			zap.String("code", ErrorCode(err)),
		)
	}
	if op == OpCart {
		return
	}
	e.emitAudit(ctx, auditEventCartMutationFailed, op, false, owner.CustomerID, err, func() map[string]string {
		return map[string]string{"fresh": strconv.FormatBool(owner.Fresh)}
	})
}

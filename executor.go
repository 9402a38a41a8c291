package woosession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Operation names accepted by [Engine.Execute].
const (
	OpAddToCart            = "addToCart"
	OpRemoveItemsFromCart  = "removeItemsFromCart"
	OpRestoreCartItems     = "restoreCartItems"
	OpUpdateItemQuantities = "updateItemQuantities"
	OpEmptyCart            = "emptyCart"
	OpAddFee               = "addFee"
	OpApplyCoupon          = "applyCoupon"
	OpRemoveCoupons        = "removeCoupons"
	OpCart                 = "cart"
)

// Operations lists every operation name in a stable order.
var Operations = []string{
	OpAddToCart,
	OpRemoveItemsFromCart,
	OpRestoreCartItems,
	OpUpdateItemQuantities,
	OpEmptyCart,
	OpAddFee,
	OpApplyCoupon,
	OpRemoveCoupons,
	OpCart,
}

// Request is one operation call. Variables holds the operation's input object and may
// be empty for operations without input.
type Request struct {
	Operation string
	Variables json.RawMessage
	Header    http.Header
}

// Response mirrors a GraphQL response body. Header carries the session token to send
// back and is never serialized.
type Response struct {
	Data   map[string]any  `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
	Header http.Header     `json:"-"`
}

// ResponseError is one entry of Response.Errors.
type ResponseError struct {
	Message    string             `json:"message"`
	Path       []string           `json:"path,omitempty"`
	Extensions ResponseErrorCodes `json:"extensions"`
}

// ResponseErrorCodes is the extensions object of a [ResponseError].
type ResponseErrorCodes struct {
	Code string `json:"code"`
}

// NewResponseError converts err to its wire form. Internal failures get a generic
// message.
func NewResponseError(err error, path ...string) ResponseError {
	code := ErrorCode(err)
	msg := err.Error()
	switch code {
	case CodeInternal:
		msg = "internal error"
	case CodeStoreUnavailable:
		msg = "cart storage unavailable"
	}
	return ResponseError{Message: msg, Path: path, Extensions: ResponseErrorCodes{Code: code}}
}

// Execute authenticates req, runs its operation and refreshes the session token.
//
// A rejected session yields errors only: no data and no token header, and the cart is
// never read or written. Once the session is valid the token is refreshed even when the
// operation itself fails. A fresh customer receives a token only after a successful
// write, since before that there is no cart to point to.
func (e *Engine) Execute(ctx context.Context, req Request) *Response {
	resp := &Response{Header: http.Header{}}
	if e == nil {
		resp.Errors = []ResponseError{NewResponseError(ErrEngineNotReady)}
		return resp
	}

	owner, err := e.Authenticate(ctx, req.Header.Get(e.HeaderName()))
	if err != nil {
		resp.Errors = []ResponseError{NewResponseError(err)}
		return resp
	}

	ctx, established := WithSessionState(ctx)
	ctx = WithOwner(ctx, owner)

	value, err := e.dispatch(ctx, owner, req.Operation, req.Variables)
	switch {
	case err == nil:
		resp.Data = map[string]any{req.Operation: value}
	case req.Operation != "" && isKnownOperation(req.Operation):
		resp.Data = map[string]any{req.Operation: nil}
		resp.Errors = append(resp.Errors, NewResponseError(err, req.Operation))
	default:
		resp.Errors = append(resp.Errors, NewResponseError(err))
	}

	if owner.Fresh && !established() {
		return resp
	}
	token, err := e.Refresh(ctx, owner)
	if err != nil {
		resp.Errors = append(resp.Errors, NewResponseError(fmt.Errorf("refresh session: %w", err)))
		return resp
	}
	resp.Header.Set(e.HeaderName(), token)
	return resp
}

func (e *Engine) dispatch(ctx context.Context, owner *Owner, op string, vars json.RawMessage) (any, error) {
	switch op {
	case OpAddToCart:
		var in AddToCartInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.AddToCart(ctx, owner, in)
	case OpRemoveItemsFromCart:
		var in RemoveItemsFromCartInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.RemoveItemsFromCart(ctx, owner, in)
	case OpRestoreCartItems:
		var in RestoreCartItemsInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.RestoreCartItems(ctx, owner, in)
	case OpUpdateItemQuantities:
		var in UpdateItemQuantitiesInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.UpdateItemQuantities(ctx, owner, in)
	case OpEmptyCart:
		var in EmptyCartInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.EmptyCart(ctx, owner, in)
	case OpAddFee:
		var in AddFeeInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.AddFee(ctx, owner, in)
	case OpApplyCoupon:
		var in ApplyCouponInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.ApplyCoupon(ctx, owner, in)
	case OpRemoveCoupons:
		var in RemoveCouponsInput
		if err := decodeVariables(vars, &in); err != nil {
			return nil, err
		}
		return e.RemoveCoupons(ctx, owner, in)
	case OpCart:
		return e.Cart(ctx, owner)
	default:
		e.logger.Debug("unknown operation", zap.String("operation", op))
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

func decodeVariables(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func isKnownOperation(op string) bool {
	_, ok := operationMetrics[op]
	return ok
}

package woosession

import (
	"errors"

	"github.com/hwsiew/woosession/cart"
	"github.com/hwsiew/woosession/internal/rate"
	"github.com/hwsiew/woosession/jwt"
)

// Session errors. Every error returned by [Engine.Authenticate] also matches
// [ErrSessionRejected].
var (
	// ErrSessionRejected marks a request whose session token was refused before any cart access.
	ErrSessionRejected = errors.New("session rejected")
	// ErrMalformedToken is returned when the header lacks the "Session " prefix or the token
	// cannot be parsed.
	ErrMalformedToken = jwt.ErrMalformedToken
	// ErrInvalidSignature is returned for tokens not signed with the configured HS256 secret.
	ErrInvalidSignature = jwt.ErrInvalidSignature
	// ErrTokenExpired is returned when exp is in the past beyond the leeway.
	ErrTokenExpired = jwt.ErrExpired
	// ErrTokenNotYetValid is returned when nbf is in the future beyond the leeway.
	ErrTokenNotYetValid = jwt.ErrNotYetValid
	// ErrInvalidClaims is returned for a foreign issuer or an empty customer id.
	ErrInvalidClaims = jwt.ErrInvalidClaims
)

// Cart errors. These are data-level failures: the session stays valid and the refreshed
// token is still returned.
var (
	ErrInvalidProduct       = errors.New("invalid product")
	ErrProductOutOfStock    = errors.New("product out of stock")
	ErrInvalidQuantity      = cart.ErrInvalidQuantity
	ErrItemNotFound         = cart.ErrItemNotFound
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponAlreadyApplied = cart.ErrCouponAlreadyApplied
	ErrInvalidFee           = cart.ErrInvalidFee
	ErrFeeExists            = cart.ErrFeeExists
)

var (
	// ErrStoreUnavailable wraps cart store backend failures.
	ErrStoreUnavailable = cart.ErrStoreUnavailable
	// ErrBadRequest is returned when operation variables cannot be decoded.
	ErrBadRequest = errors.New("bad request")
	// ErrUnknownOperation is returned by [Engine.Execute] for unregistered operation names.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrRateLimited is returned when the client IP has used up a throttle budget. A
	// rejection for this reason also matches [ErrSessionRejected].
	ErrRateLimited = rate.ErrRateLimited
	// ErrNoOwner is returned by cart operations called without an authenticated [Owner].
	ErrNoOwner = errors.New("no cart owner")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Error codes carried in ResponseError.Extensions.Code.
const (
	CodeMalformedToken       = "MALFORMED_TOKEN"
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeTokenNotYetValid     = "TOKEN_NOT_YET_VALID"
	CodeInvalidClaims        = "INVALID_CLAIMS"
	CodeInvalidProduct       = "INVALID_PRODUCT"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeItemNotFound         = "ITEM_NOT_FOUND"
	CodeCouponNotFound       = "COUPON_NOT_FOUND"
	CodeCouponAlreadyApplied = "COUPON_ALREADY_APPLIED"
	CodeInvalidFee           = "INVALID_FEE"
	CodeFeeExists            = "FEE_EXISTS"
	CodeOutOfStock           = "OUT_OF_STOCK"
	CodeBadRequest           = "BAD_REQUEST"
	CodeUnknownOperation     = "UNKNOWN_OPERATION"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeNoOwner              = "NO_SESSION"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL"
)

// ErrorCode maps err to its wire code. Unclassified errors are CodeInternal.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedToken):
		return CodeMalformedToken
	case errors.Is(err, ErrInvalidSignature):
		return CodeInvalidSignature
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenNotYetValid):
		return CodeTokenNotYetValid
	case errors.Is(err, ErrInvalidClaims):
		return CodeInvalidClaims
	case errors.Is(err, ErrInvalidProduct):
		return CodeInvalidProduct
	case errors.Is(err, ErrProductOutOfStock):
		return CodeOutOfStock
	case errors.Is(err, ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, ErrItemNotFound):
		return CodeItemNotFound
	case errors.Is(err, ErrCouponNotFound):
		return CodeCouponNotFound
	case errors.Is(err, ErrCouponAlreadyApplied):
		return CodeCouponAlreadyApplied
	case errors.Is(err, ErrInvalidFee):
		return CodeInvalidFee
	case errors.Is(err, ErrFeeExists):
		return CodeFeeExists
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, ErrUnknownOperation):
		return CodeUnknownOperation
	case errors.Is(err, ErrNoOwner):
		return CodeNoOwner
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case isStoreFailure(err):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}

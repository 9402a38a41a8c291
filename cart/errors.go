package cart

import "errors"

var (
	// ErrInvalidQuantity is returned for non-positive add quantities, negative updates and
	// lines above MaxQuantity or whose subtotal would overflow.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrItemNotFound is returned when a quantity update names an unknown item key.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrCouponAlreadyApplied is returned when a coupon code is applied twice.
	ErrCouponAlreadyApplied = errors.New("coupon already applied")
	// ErrInvalidFee is returned for fees without a name or with a negative amount.
	ErrInvalidFee = errors.New("invalid fee")
	// ErrFeeExists is returned when a fee with the same id is already on the cart.
	ErrFeeExists = errors.New("fee already exists")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("cart store unavailable")
	// ErrSessionCorrupt is returned when a stored blob cannot be decoded.
	ErrSessionCorrupt = errors.New("cart session corrupt")
	// ErrUpdateConflict is returned when optimistic retries are exhausted.
	ErrUpdateConflict = errors.New("cart update conflict")
)

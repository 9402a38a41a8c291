package woosession

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hwsiew/woosession/jwt"
)

// Owner is the validated cart owner of one request. It is produced by
// [Engine.Authenticate] and lives only in the request context.
type Owner struct {
	CustomerID string
	// Fresh is true when the request carried no session header. A fresh owner has no
	// token yet; one is issued once its cart is first written.
	Fresh bool
	// Claims is nil for fresh owners.
	Claims *jwt.Claims
}

/*
====================================
VIEWS
====================================
*/

// ItemView is a cart line as returned to clients. Money is in major units.
type ItemView struct {
	Key         string            `json:"key"`
	ProductID   int64             `json:"productId"`
	VariationID int64             `json:"variationId,omitempty"`
	Variation   map[string]string `json:"variation,omitempty"`
	ExtraData   map[string]string `json:"extraData,omitempty"`
	Name        string            `json:"name,omitempty"`
	Quantity    int               `json:"quantity"`
	Price       float64           `json:"price"`
	Subtotal    float64           `json:"subtotal"`
}

// FeeView is an applied fee.
type FeeView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Taxable  bool    `json:"taxable"`
	TaxClass string  `json:"taxClass,omitempty"`
}

// CouponView is an applied coupon.
type CouponView struct {
	Code         string  `json:"code"`
	DiscountType string  `json:"discountType"`
	Amount       float64 `json:"amount"`
}

// CartContents holds the active lines in insertion order.
type CartContents struct {
	Nodes        []ItemView `json:"nodes"`
	ItemCount    int        `json:"itemCount"`
	ProductCount int        `json:"productCount"`
}

// CartView is the read model of a cart.
type CartView struct {
	Contents       CartContents `json:"contents"`
	Fees           []FeeView    `json:"fees"`
	AppliedCoupons []CouponView `json:"appliedCoupons"`
	Subtotal       float64      `json:"subtotal"`
	DiscountTotal  float64      `json:"discountTotal"`
	FeeTotal       float64      `json:"feeTotal"`
	Total          float64      `json:"total"`
	IsEmpty        bool         `json:"isEmpty"`
}

/*
====================================
INPUTS
====================================
*/

// KeyList decodes from either a single JSON string or an array of strings.
type KeyList []string

// UnmarshalJSON implements json.Unmarshaler.
func (k *KeyList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*k = KeyList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("keys must be a string or an array of strings: %w", err)
	}
	*k = many
	return nil
}

// AddToCartInput adds Quantity units of a product or one of its variations.
type AddToCartInput struct {
	ClientMutationID string            `json:"clientMutationId,omitempty"`
	ProductID        int64             `json:"productId"`
	Quantity         int               `json:"quantity"`
	VariationID      int64             `json:"variationId,omitempty"`
	Variation        map[string]string `json:"variation,omitempty"`
	ExtraData        map[string]string `json:"extraData,omitempty"`
}

// RemoveItemsFromCartInput moves lines to the removed set, where they can be restored.
type RemoveItemsFromCartInput struct {
	ClientMutationID string  `json:"clientMutationId,omitempty"`
	Keys             KeyList `json:"keys,omitempty"`
	// All removes every active line and ignores Keys.
	All bool `json:"all,omitempty"`
}

// RestoreCartItemsInput brings removed lines back by key.
type RestoreCartItemsInput struct {
	ClientMutationID string  `json:"clientMutationId,omitempty"`
	Keys             KeyList `json:"keys"`
}

// ItemQuantity targets one active line. A zero quantity removes it.
type ItemQuantity struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

// UpdateItemQuantitiesInput sets the quantity of several lines in one atomic batch.
type UpdateItemQuantitiesInput struct {
	ClientMutationID string         `json:"clientMutationId,omitempty"`
	Items            []ItemQuantity `json:"items"`
}

// EmptyCartInput clears the whole cart.
type EmptyCartInput struct {
	ClientMutationID string `json:"clientMutationId,omitempty"`
}

// AddFeeInput adds a named surcharge. Amount is in major units.
type AddFeeInput struct {
	ClientMutationID string  `json:"clientMutationId,omitempty"`
	Name             string  `json:"name"`
	Amount           float64 `json:"amount"`
	Taxable          bool    `json:"taxable,omitempty"`
	TaxClass         string  `json:"taxClass,omitempty"`
}

// ApplyCouponInput applies one coupon code.
type ApplyCouponInput struct {
	ClientMutationID string `json:"clientMutationId,omitempty"`
	Code             string `json:"code"`
}

// RemoveCouponsInput removes applied coupons by code.
type RemoveCouponsInput struct {
	ClientMutationID string  `json:"clientMutationId,omitempty"`
	Codes            KeyList `json:"codes"`
}

/*
====================================
PAYLOADS
====================================
*/

// AddToCartPayload carries the added or merged line.
type AddToCartPayload struct {
	ClientMutationID string    `json:"clientMutationId,omitempty"`
	CartItem         ItemView  `json:"cartItem"`
	Cart             *CartView `json:"cart"`
}

// RemoveItemsFromCartPayload lists the lines that were removed.
type RemoveItemsFromCartPayload struct {
	ClientMutationID string     `json:"clientMutationId,omitempty"`
	CartItems        []ItemView `json:"cartItems"`
	Cart             *CartView  `json:"cart"`
}

// RestoreCartItemsPayload lists the lines that were restored.
type RestoreCartItemsPayload struct {
	ClientMutationID string     `json:"clientMutationId,omitempty"`
	CartItems        []ItemView `json:"cartItems"`
	Cart             *CartView  `json:"cart"`
}

// UpdateItemQuantitiesPayload splits the batch into changed and removed lines; Items
// is their union.
type UpdateItemQuantitiesPayload struct {
	ClientMutationID string     `json:"clientMutationId,omitempty"`
	Updated          []ItemView `json:"updated"`
	Removed          []ItemView `json:"removed"`
	Items            []ItemView `json:"items"`
	Cart             *CartView  `json:"cart"`
}

// EmptyCartPayload returns the cart as it was before it was emptied.
type EmptyCartPayload struct {
	ClientMutationID string    `json:"clientMutationId,omitempty"`
	DeletedCart      *CartView `json:"deletedCart"`
	Cart             *CartView `json:"cart"`
}

// AddFeePayload carries the new fee.
type AddFeePayload struct {
	ClientMutationID string    `json:"clientMutationId,omitempty"`
	CartFee          FeeView   `json:"cartFee"`
	Cart             *CartView `json:"cart"`
}

// ApplyCouponPayload carries the applied coupon.
type ApplyCouponPayload struct {
	ClientMutationID string     `json:"clientMutationId,omitempty"`
	Applied          CouponView `json:"applied"`
	Cart             *CartView  `json:"cart"`
}

// RemoveCouponsPayload lists the codes that were removed.
type RemoveCouponsPayload struct {
	ClientMutationID string    `json:"clientMutationId,omitempty"`
	Removed          []string  `json:"removed"`
	Cart             *CartView `json:"cart"`
}

package cart

import "time"

// Discount types understood by [AppliedCoupon].
const (
	DiscountFixedCart = "fixed_cart"
	DiscountPercent   = "percent"
)

// Session is the server-side cart of one anonymous customer.
type Session struct {
	CustomerID string          `json:"customer_id"`
	Items      []Item          `json:"items"`
	Removed    []Item          `json:"removed,omitempty"`
	Fees       []Fee           `json:"fees,omitempty"`
	Coupons    []AppliedCoupon `json:"coupons,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// Item is a cart line. UnitPrice is in minor units (cents).
type Item struct {
	Key         string            `json:"key"`
	ProductID   int64             `json:"product_id"`
	VariationID int64             `json:"variation_id,omitempty"`
	Variation   map[string]string `json:"variation,omitempty"`
	ExtraData   map[string]string `json:"extra_data,omitempty"`
	Name        string            `json:"name,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   int64             `json:"unit_price"`
	AddedAt     int64             `json:"added_at"`
}

// Subtotal returns UnitPrice * Quantity.
func (i Item) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Fee is an arbitrary surcharge. Amount is in minor units.
type Fee struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Taxable  bool   `json:"taxable,omitempty"`
	TaxClass string `json:"tax_class,omitempty"`
}

// AppliedCoupon is the snapshot of a coupon at the time it was applied.
// Amount is minor units for fixed_cart and whole percent points for percent.
type AppliedCoupon struct {
	Code         string `json:"code"`
	DiscountType string `json:"discount_type"`
	Amount       int64  `json:"amount"`
}

// Totals are computed on read; nothing here is persisted.
type Totals struct {
	Subtotal      int64
	DiscountTotal int64
	FeeTotal      int64
	Total         int64
}

// NewSession returns an empty cart for customerID.
func NewSession(customerID string, now time.Time) *Session {
	ts := now.Unix()
	return &Session{
		CustomerID: customerID,
		Items:      []Item{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// IsNew reports whether the session has never been persisted.
func (s *Session) IsNew() bool {
	return s.ExpiresAt == 0
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Items = cloneItems(s.Items)
	out.Removed = cloneItems(s.Removed)
	if s.Fees != nil {
		out.Fees = append([]Fee(nil), s.Fees...)
	}
	if s.Coupons != nil {
		out.Coupons = append([]AppliedCoupon(nil), s.Coupons...)
	}
	return &out
}

func cloneItems(in []Item) []Item {
	if in == nil {
		return nil
	}
	out := make([]Item, len(in))
	for i, item := range in {
		item.Variation = cloneMap(item.Variation)
		item.ExtraData = cloneMap(item.ExtraData)
		out[i] = item
	}
	return out
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package woosession

import (
	"context"
	"fmt"
	"sync"

	"github.com/hwsiew/woosession/cart"
)

// Product is the catalog entry a cart line is priced from. Price is in minor units.
type Product struct {
	ID         int64
	Name       string
	Price      int64
	InStock    bool
	Variations []Variation
}

// Variation is a purchasable option set of a variable product. A zero Price falls back
// to the parent product's price.
type Variation struct {
	ID         int64
	Attributes map[string]string
	Price      int64
	InStock    bool
}

// Catalog resolves products for AddToCart. Implementations return an error matching
// [ErrInvalidProduct] for unknown ids.
type Catalog interface {
	Product(ctx context.Context, id int64) (Product, error)
}

// Coupon is a redeemable discount. Amount is minor units for [cart.DiscountFixedCart]
// and whole percent points for [cart.DiscountPercent].
type Coupon struct {
	Code         string
	DiscountType string
	Amount       int64
}

// CouponProvider resolves coupon codes for ApplyCoupon. Implementations return an error
// matching [ErrCouponNotFound] for unknown codes.
type CouponProvider interface {
	Coupon(ctx context.Context, code string) (Coupon, error)
}

// StaticCatalog is an in-memory [Catalog].
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[int64]Product
}

// NewStaticCatalog returns a catalog holding products.
func NewStaticCatalog(products ...Product) *StaticCatalog {
	c := &StaticCatalog{products: make(map[int64]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// Put adds or replaces p.
func (c *StaticCatalog) Put(p Product) {
	c.mu.Lock()
	c.products[p.ID] = p
	c.mu.Unlock()
}

// Product returns the product with id or ErrInvalidProduct.
func (c *StaticCatalog) Product(_ context.Context, id int64) (Product, error) {
	c.mu.RLock()
	p, ok := c.products[id]
	c.mu.RUnlock()
	if !ok {
		return Product{}, fmt.Errorf("%w: %d", ErrInvalidProduct, id)
	}
	return p, nil
}

// StaticCoupons is an in-memory [CouponProvider]. Codes compare case-insensitively.
type StaticCoupons struct {
	mu      sync.RWMutex
	coupons map[string]Coupon
}

// NewStaticCoupons returns a provider holding coupons.
func NewStaticCoupons(coupons ...Coupon) *StaticCoupons {
	s := &StaticCoupons{coupons: make(map[string]Coupon, len(coupons))}
	for _, c := range coupons {
		s.Put(c)
	}
	return s
}

// Put adds or replaces c.
func (s *StaticCoupons) Put(c Coupon) {
	c.Code = cart.NormalizeCouponCode(c.Code)
	s.mu.Lock()
	s.coupons[c.Code] = c
	s.mu.Unlock()
}

// Coupon looks code up case-insensitively.
func (s *StaticCoupons) Coupon(_ context.Context, code string) (Coupon, error) {
	code = cart.NormalizeCouponCode(code)
	s.mu.RLock()
	c, ok := s.coupons[code]
	s.mu.RUnlock()
	if !ok {
		return Coupon{}, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	return c, nil
}

// resolveLine prices a requested line against p. It picks the variation by id or, when
// no id is given, by an exact attribute match.
func resolveLine(p Product, variationID int64, attrs map[string]string) (cart.Item, error) {
	item := cart.Item{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
	}

	if variationID == 0 && len(attrs) == 0 {
		if len(p.Variations) > 0 {
			return cart.Item{}, fmt.Errorf("%w: product %d requires a variation", ErrInvalidProduct, p.ID)
		}
		if !p.InStock {
			return cart.Item{}, fmt.Errorf("%w: %d", ErrProductOutOfStock, p.ID)
		}
		return item, nil
	}

	for _, v := range p.Variations {
		if variationID != 0 && v.ID != variationID {
			continue
		}
		if variationID == 0 && !sameAttributes(v.Attributes, attrs) {
			continue
		}
		if !v.InStock {
			return cart.Item{}, fmt.Errorf("%w: %d/%d", ErrProductOutOfStock, p.ID, v.ID)
		}
		item.VariationID = v.ID
		item.Variation = v.Attributes
		if len(attrs) > 0 {
			item.Variation = attrs
		}
		if v.Price > 0 {
			item.UnitPrice = v.Price
		}
		return item, nil
	}
	return cart.Item{}, fmt.Errorf("%w: no matching variation for product %d", ErrInvalidProduct, p.ID)
}

func sameAttributes(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

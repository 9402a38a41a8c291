package woosession

import (
	"math"

	"github.com/hwsiew/woosession/cart"
)

func money(minor int64) float64 {
	return float64(minor) / 100
}

func toMinor(major float64) (int64, bool) {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, false
	}
	return int64(math.Round(major * 100)), true
}

func newItemView(item cart.Item) ItemView {
	return ItemView{
		Key:         item.Key,
		ProductID:   item.ProductID,
		VariationID: item.VariationID,
		Variation:   item.Variation,
		ExtraData:   item.ExtraData,
		Name:        item.Name,
		Quantity:    item.Quantity,
		Price:       money(item.UnitPrice),
		Subtotal:    money(item.Subtotal()),
	}
}

func newItemViews(items []cart.Item) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, newItemView(item))
	}
	return out
}

func newFeeView(fee cart.Fee) FeeView {
	return FeeView{
		ID:       fee.ID,
		Name:     fee.Name,
		Amount:   money(fee.Amount),
		Taxable:  fee.Taxable,
		TaxClass: fee.TaxClass,
	}
}

func newCouponView(c cart.AppliedCoupon) CouponView {
	amount := money(c.Amount)
	if c.DiscountType == cart.DiscountPercent {
		amount = float64(c.Amount)
	}
	return CouponView{Code: c.Code, DiscountType: c.DiscountType, Amount: amount}
}

func newCartView(s *cart.Session) *CartView {
	v := &CartView{
		Contents:       CartContents{Nodes: []ItemView{}},
		Fees:           []FeeView{},
		AppliedCoupons: []CouponView{},
		IsEmpty:        true,
	}
	if s == nil {
		return v
	}

	v.Contents.Nodes = newItemViews(s.Items)
	v.Contents.ItemCount = s.ItemCount()
	v.Contents.ProductCount = len(s.Items)
	for _, f := range s.Fees {
		v.Fees = append(v.Fees, newFeeView(f))
	}
	for _, c := range s.Coupons {
		v.AppliedCoupons = append(v.AppliedCoupons, newCouponView(c))
	}

	t := s.Totals()
	v.Subtotal = money(t.Subtotal)
	v.DiscountTotal = money(t.DiscountTotal)
	v.FeeTotal = money(t.FeeTotal)
	v.Total = money(t.Total)
	v.IsEmpty = len(s.Items) == 0
	return v
}

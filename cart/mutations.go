package cart

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxQuantity is the largest quantity a single cart line may hold.
const MaxQuantity = 1_000_000

// QuantityChange targets one active line by key.
type QuantityChange struct {
	Key      string
	Quantity int
}

// AddItem inserts item or, when a line with the same key exists, increments it.
// item.Key is recomputed from the product identity. The resulting line is returned.
func (s *Session) AddItem(item Item, now time.Time) (Item, error) {
	if err := checkLine(item.Quantity, item.UnitPrice); err != nil {
		return Item{}, err
	}
	item.Key = ItemKey(item.ProductID, item.VariationID, item.Variation, item.ExtraData)

	if idx := indexOf(s.Items, item.Key); idx >= 0 {
		line := &s.Items[idx]
		if item.Quantity > MaxQuantity-line.Quantity {
			return Item{}, fmt.Errorf("%w: line would exceed %d", ErrInvalidQuantity, MaxQuantity)
		}
		if err := checkLine(line.Quantity+item.Quantity, line.UnitPrice); err != nil {
			return Item{}, err
		}
		line.Quantity += item.Quantity
		s.touch(now)
		return *line, nil
	}

	// A fresh add supersedes any removed copy of the same line.
	if idx := indexOf(s.Removed, item.Key); idx >= 0 {
		s.Removed = append(s.Removed[:idx], s.Removed[idx+1:]...)
	}

	item.AddedAt = now.Unix()
	item.Variation = cloneMap(item.Variation)
	item.ExtraData = cloneMap(item.ExtraData)
	s.Items = append(s.Items, item)
	s.touch(now)
	return item, nil
}

// RemoveItems moves the matching active lines to the removed set and returns them.
// Unknown keys are skipped.
func (s *Session) RemoveItems(keys []string, now time.Time) []Item {
	removed := make([]Item, 0, len(keys))
	for _, key := range dedupe(keys) {
		idx := indexOf(s.Items, key)
		if idx < 0 {
			continue
		}
		item := s.Items[idx]
		s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
		s.putRemoved(item)
		removed = append(removed, item)
	}
	if len(removed) > 0 {
		s.touch(now)
	}
	return removed
}

// RemoveAll moves every active line to the removed set.
func (s *Session) RemoveAll(now time.Time) []Item {
	keys := make([]string, len(s.Items))
	for i, item := range s.Items {
		keys[i] = item.Key
	}
	return s.RemoveItems(keys, now)
}

// RestoreItems moves the matching removed lines back to the active set and returns them.
// Unknown keys are skipped. A restored line replaces an active line with the same key.
func (s *Session) RestoreItems(keys []string, now time.Time) []Item {
	restored := make([]Item, 0, len(keys))
	for _, key := range dedupe(keys) {
		idx := indexOf(s.Removed, key)
		if idx < 0 {
			continue
		}
		item := s.Removed[idx]
		s.Removed = append(s.Removed[:idx], s.Removed[idx+1:]...)
		if active := indexOf(s.Items, key); active >= 0 {
			s.Items[active] = item
		} else {
			s.Items = append(s.Items, item)
		}
		restored = append(restored, item)
	}
	if len(restored) > 0 {
		s.touch(now)
	}
	return restored
}

// SetQuantities applies every change or none. A zero quantity removes the line. When a
// key appears more than once the last change for it wins.
func (s *Session) SetQuantities(changes []QuantityChange, now time.Time) (updated, removed []Item, err error) {
	changes = foldChanges(changes)
	for _, ch := range changes {
		if ch.Quantity < 0 || ch.Quantity > MaxQuantity {
			return nil, nil, ErrInvalidQuantity
		}
		idx := indexOf(s.Items, ch.Key)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrItemNotFound, ch.Key)
		}
		if ch.Quantity == 0 {
			continue
		}
		if err := checkLine(ch.Quantity, s.Items[idx].UnitPrice); err != nil {
			return nil, nil, err
		}
	}

	updated = make([]Item, 0, len(changes))
	removed = make([]Item, 0)
	for _, ch := range changes {
		if ch.Quantity == 0 {
			removed = append(removed, s.RemoveItems([]string{ch.Key}, now)...)
			continue
		}
		idx := indexOf(s.Items, ch.Key)
		s.Items[idx].Quantity = ch.Quantity
		updated = append(updated, s.Items[idx])
	}
	s.touch(now)
	return updated, removed, nil
}

// foldChanges keeps the first position of each key and the last quantity given for it.
func foldChanges(changes []QuantityChange) []QuantityChange {
	pos := make(map[string]int, len(changes))
	out := make([]QuantityChange, 0, len(changes))
	for _, ch := range changes {
		if i, ok := pos[ch.Key]; ok {
			out[i].Quantity = ch.Quantity
			continue
		}
		pos[ch.Key] = len(out)
		out = append(out, ch)
	}
	return out
}

// checkLine rejects quantities outside [1, MaxQuantity] and lines whose subtotal
// would overflow int64.
func checkLine(qty int, unitPrice int64) error {
	if qty <= 0 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	if unitPrice > 0 && int64(qty) > math.MaxInt64/unitPrice {
		return fmt.Errorf("%w: line total overflows", ErrInvalidQuantity)
	}
	return nil
}

// Empty drops all lines, removed lines, fees and coupons.
func (s *Session) Empty(now time.Time) {
	s.Items = []Item{}
	s.Removed = nil
	s.Fees = nil
	s.Coupons = nil
	s.touch(now)
}

// AddFee appends fee; its ID is derived from the name.
func (s *Session) AddFee(fee Fee, now time.Time) (Fee, error) {
	fee.Name = strings.TrimSpace(fee.Name)
	fee.ID = FeeID(fee.Name)
	if fee.ID == "" || fee.Amount < 0 {
		return Fee{}, ErrInvalidFee
	}
	for _, existing := range s.Fees {
		if existing.ID == fee.ID {
			return Fee{}, fmt.Errorf("%w: %s", ErrFeeExists, fee.ID)
		}
	}
	s.Fees = append(s.Fees, fee)
	s.touch(now)
	return fee, nil
}

// ApplyCoupon records coupon. Codes compare case-insensitively.
func (s *Session) ApplyCoupon(coupon AppliedCoupon, now time.Time) error {
	coupon.Code = NormalizeCouponCode(coupon.Code)
	if s.HasCoupon(coupon.Code) {
		return fmt.Errorf("%w: %s", ErrCouponAlreadyApplied, coupon.Code)
	}
	s.Coupons = append(s.Coupons, coupon)
	s.touch(now)
	return nil
}

// RemoveCoupons drops the named coupons and returns the codes actually removed.
func (s *Session) RemoveCoupons(codes []string, now time.Time) []string {
	drop := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		drop[NormalizeCouponCode(code)] = struct{}{}
	}

	kept := s.Coupons[:0]
	var removed []string
	for _, c := range s.Coupons {
		if _, ok := drop[c.Code]; ok {
			removed = append(removed, c.Code)
			continue
		}
		kept = append(kept, c)
	}
	s.Coupons = kept
	if len(removed) > 0 {
		s.touch(now)
	}
	return removed
}

// HasCoupon reports whether code is applied.
func (s *Session) HasCoupon(code string) bool {
	code = NormalizeCouponCode(code)
	for _, c := range s.Coupons {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Item returns the active line with key.
func (s *Session) Item(key string) (Item, bool) {
	if idx := indexOf(s.Items, key); idx >= 0 {
		return s.Items[idx], true
	}
	return Item{}, false
}

// ItemCount is the sum of active quantities.
func (s *Session) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// Totals computes subtotal, discounts, fees and the grand total. Discounts never take
// the product subtotal below zero.
func (s *Session) Totals() Totals {
	var t Totals
	for _, item := range s.Items {
		t.Subtotal += item.Subtotal()
	}
	for _, c := range s.Coupons {
		switch c.DiscountType {
		case DiscountPercent:
			t.DiscountTotal += t.Subtotal * c.Amount / 100
		default:
			t.DiscountTotal += c.Amount
		}
	}
	if t.DiscountTotal > t.Subtotal {
		t.DiscountTotal = t.Subtotal
	}
	for _, f := range s.Fees {
		t.FeeTotal += f.Amount
	}
	t.Total = t.Subtotal - t.DiscountTotal + t.FeeTotal
	return t
}

// NormalizeCouponCode lower-cases and trims a coupon code.
func NormalizeCouponCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (s *Session) putRemoved(item Item) {
	if idx := indexOf(s.Removed, item.Key); idx >= 0 {
		s.Removed[idx] = item
		return
	}
	s.Removed = append(s.Removed, item)
}

func (s *Session) touch(now time.Time) {
	s.UpdatedAt = now.Unix()
}

func indexOf(items []Item, key string) int {
	for i := range items {
		if items[i].Key == key {
			return i
		}
	}
	return -1
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

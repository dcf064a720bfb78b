// Package pricing implements the cart pricing rules engine.
//
// A Rule looks at a snapshot of the cart and reports an Effect: an absolute
// discount, extra zero-priced line items, and an optional percentage
// discount. The Engine evaluates every rule against the same snapshot, so
// the order in which rules are configured never changes the result.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

// LineItem is one cart line: a product and how many units of it.
type LineItem struct {
	Product  product.Product
	Quantity int
}

// Amount returns unit price times quantity.
func (li LineItem) Amount() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Effect is the partial pricing outcome of a single rule.
type Effect struct {
	// Discount is an absolute amount taken off the subtotal.
	Discount decimal.Decimal
	// CappedDiscount is an absolute amount that never exceeds what is left
	// of the subtotal after every Discount. Capped amounts are clamped in
	// rule order.
	CappedDiscount decimal.Decimal
	// ExtraItems are synthetic lines appended to the displayed items. They
	// are always priced at zero.
	ExtraItems []LineItem
	// Percentage is a fraction in [0, 1] applied after absolute discounts.
	// Zero means the rule has no percentage effect.
	Percentage decimal.Decimal
}

// Rule is a pluggable pricing rule. Implementations must be pure: the
// result depends only on the arguments, and items must not be retained.
type Rule interface {
	Evaluate(items []LineItem, promoCode string) Effect
}

// RuleFunc adapts an ordinary function to the Rule interface.
type RuleFunc func(items []LineItem, promoCode string) Effect

// Evaluate calls f(items, promoCode).
func (f RuleFunc) Evaluate(items []LineItem, promoCode string) Effect {
	return f(items, promoCode)
}

// Result is the priced cart.
type Result struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Percentage decimal.Decimal
	Total      decimal.Decimal
	// Items holds the cart lines followed by every rule's extra items.
	Items []LineItem
}

// Subtotal returns the sum of line amounts.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// Find returns the line for the given product code.
func Find(items []LineItem, code string) (LineItem, bool) {
	for _, item := range items {
		if item.Product.Code == code {
			return item, true
		}
	}
	return LineItem{}, false
}

// ruleName describes a rule for logs and errors.
func ruleName(r Rule) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

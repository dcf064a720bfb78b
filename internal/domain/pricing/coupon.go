package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Units returns the total number of units across items.
func Units(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func validateCoupon(code string, minItems int) error {
	if code == "" {
		return errors.Wrap(ErrOutOfRange, "promo code is required")
	}
	if minItems < 0 {
		return errors.Wrapf(ErrOutOfRange, "minimum items %d is negative", minItems)
	}
	return nil
}

// PromoAmountRule takes a fixed amount off, capped at what is left of the
// subtotal after other absolute discounts, when the cart carries a matching
// promo code and at least minItems units.
type PromoAmountRule struct {
	code     string
	amount   decimal.Decimal
	minItems int
}

// PromoAmount creates a fixed amount promo code rule.
func PromoAmount(code string, amount decimal.Decimal, minItems int) (*PromoAmountRule, error) {
	if err := validateCoupon(code, minItems); err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, errors.Wrapf(ErrOutOfRange, "amount %s is negative", amount)
	}
	return &PromoAmountRule{code: code, amount: amount, minItems: minItems}, nil
}

// Evaluate implements Rule.
func (r *PromoAmountRule) Evaluate(items []LineItem, promoCode string) Effect {
	if promoCode != r.code || Units(items) < r.minItems {
		return Effect{}
	}
	return Effect{CappedDiscount: r.amount}
}

func (r *PromoAmountRule) String() string {
	return fmt.Sprintf("promo(%s,-%s)", r.code, r.amount.StringFixed(2))
}

// CheapestFreeRule gives away one unit of the cheapest product when the cart
// carries a matching promo code and at least minItems units. The amount is
// capped like PromoAmountRule.
type CheapestFreeRule struct {
	code     string
	minItems int
}

// CheapestFree creates a rule making the lowest priced unit free.
func CheapestFree(code string, minItems int) (*CheapestFreeRule, error) {
	if err := validateCoupon(code, minItems); err != nil {
		return nil, err
	}
	return &CheapestFreeRule{code: code, minItems: minItems}, nil
}

// Evaluate implements Rule.
func (r *CheapestFreeRule) Evaluate(items []LineItem, promoCode string) Effect {
	if promoCode != r.code || Units(items) < max(r.minItems, 1) {
		return Effect{}
	}
	var lowest *decimal.Decimal
	for i := range items {
		if items[i].Quantity <= 0 {
			continue
		}
		if lowest == nil || items[i].Product.Price.LessThan(*lowest) {
			lowest = &items[i].Product.Price
		}
	}
	if lowest == nil {
		return Effect{}
	}
	return Effect{CappedDiscount: *lowest}
}

func (r *CheapestFreeRule) String() string {
	return fmt.Sprintf("cheapest-free(%s)", r.code)
}

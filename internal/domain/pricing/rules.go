package pricing

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

type identityRule struct{}

// Identity returns the rule that changes nothing.
func Identity() Rule { return identityRule{} }

func (identityRule) Evaluate([]LineItem, string) Effect { return Effect{} }

func (identityRule) String() string { return "identity" }

// NForMRule gives away N-M of every N units of one product: buy N, pay M.
type NForMRule struct {
	code string
	n, m int
}

// NForM creates a "buy n, pay m" rule for the product code.
func NForM(code string, n, m int) (*NForMRule, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.Wrap(ErrOutOfRange, "product code is required")
	}
	if n <= 0 || m < 0 || m >= n {
		return nil, errors.Wrapf(ErrOutOfRange, "invalid %d-for-%d deal", n, m)
	}
	return &NForMRule{code: code, n: n, m: m}, nil
}

// ThreeForTwo creates the 3-for-2 deal: every third unit is free.
func ThreeForTwo(code string) (*NForMRule, error) {
	return NForM(code, 3, 2)
}

// Evaluate implements Rule.
func (r *NForMRule) Evaluate(items []LineItem, _ string) Effect {
	item, ok := Find(items, r.code)
	if !ok {
		return Effect{}
	}
	free := (item.Quantity / r.n) * (r.n - r.m)
	return Effect{
		Discount: item.Product.Price.Mul(decimal.NewFromInt(int64(free))),
	}
}

func (r *NForMRule) String() string {
	return fmt.Sprintf("%d-for-%d(%s)", r.n, r.m, r.code)
}

// BulkRule reprices every unit of a product once a quantity threshold is met.
type BulkRule struct {
	code        string
	minQuantity int
	price       decimal.Decimal
}

// Bulk creates a rule pricing all units of code at price when at least
// minQuantity units are in the cart.
func Bulk(code string, minQuantity int, price decimal.Decimal) (*BulkRule, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.Wrap(ErrOutOfRange, "product code is required")
	}
	if minQuantity <= 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "minimum quantity %d must be positive", minQuantity)
	}
	if price.IsNegative() {
		return nil, errors.Wrapf(ErrOutOfRange, "bulk price %s is negative", price)
	}
	return &BulkRule{code: code, minQuantity: minQuantity, price: price}, nil
}

// Evaluate implements Rule.
func (r *BulkRule) Evaluate(items []LineItem, _ string) Effect {
	item, ok := Find(items, r.code)
	if !ok || item.Quantity < r.minQuantity {
		return Effect{}
	}
	qty := decimal.NewFromInt(int64(item.Quantity))
	return Effect{
		Discount: item.Product.Price.Sub(r.price).Mul(qty),
	}
}

func (r *BulkRule) String() string {
	return fmt.Sprintf("bulk(%s>=%d@%s)", r.code, r.minQuantity, r.price.StringFixed(2))
}

// BundleRule adds a free unit of one product for every unit of another.
type BundleRule struct {
	trigger string
	bundled product.Product
}

// Bundle creates a rule adding one free bundled unit per trigger unit.
func Bundle(trigger string, bundled product.Product) (*BundleRule, error) {
	if strings.TrimSpace(trigger) == "" {
		return nil, errors.Wrap(ErrOutOfRange, "trigger product code is required")
	}
	if bundled.IsZero() {
		return nil, errors.Wrap(ErrInvalidType, "bundled product is required")
	}
	if strings.TrimSpace(bundled.Code) == "" {
		return nil, errors.Wrap(ErrOutOfRange, "bundled product code is required")
	}
	return &BundleRule{trigger: trigger, bundled: bundled.Free()}, nil
}

// Evaluate implements Rule.
func (r *BundleRule) Evaluate(items []LineItem, _ string) Effect {
	item, ok := Find(items, r.trigger)
	if !ok {
		return Effect{}
	}
	return Effect{
		ExtraItems: []LineItem{{Product: r.bundled, Quantity: item.Quantity}},
	}
}

func (r *BundleRule) String() string {
	return fmt.Sprintf("bundle(%s+%s)", r.trigger, r.bundled.Code)
}

// PromoCodeRule takes a percentage off the total when the cart carries a
// matching promo code.
type PromoCodeRule struct {
	code     string
	fraction decimal.Decimal
}

// PromoCode creates a rule for code worth percent off (10 means 10%).
func PromoCode(code string, percent decimal.Decimal) (*PromoCodeRule, error) {
	if code == "" {
		return nil, errors.Wrap(ErrOutOfRange, "promo code is required")
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return nil, errors.Wrapf(ErrOutOfRange, "percent %s must be between 0 and 100", percent)
	}
	return &PromoCodeRule{code: code, fraction: percent.Div(hundred)}, nil
}

// Evaluate implements Rule.
func (r *PromoCodeRule) Evaluate(_ []LineItem, promoCode string) Effect {
	if promoCode != r.code {
		return Effect{}
	}
	return Effect{Percentage: r.fraction}
}

func (r *PromoCodeRule) String() string {
	return fmt.Sprintf("promo(%s,%s%%)", r.code, r.fraction.Mul(hundred).String())
}

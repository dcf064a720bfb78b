// Package cart implements the shopping cart façade over the pricing engine.
package cart

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Cart holds line items and an optional promo code. Prices are computed on
// every read by the pricing engine, so reads can fail when a rule reports
// an invalid effect.
//
// A Cart is not safe for concurrent use.
type Cart struct {
	engine    *pricing.Engine
	items     []pricing.LineItem
	index     map[string]int
	promoCode string
}

// New creates a Cart priced by the given rules. With no rules the cart
// charges the plain sum of unit price times quantity.
func New(rules ...pricing.Rule) (*Cart, error) {
	engine, err := pricing.NewEngine(rules)
	if err != nil {
		return nil, errors.Wrap(err, "create engine")
	}
	return NewWithEngine(engine), nil
}

// NewWithEngine creates a Cart that shares an existing engine.
func NewWithEngine(engine *pricing.Engine) *Cart {
	return &Cart{
		engine: engine,
		index:  make(map[string]int),
	}
}

// Add adds one unit of p. When a promo code argument is given it is applied
// as well; passing more than one is an error.
func (c *Cart) Add(p product.Product, promoCode ...string) error {
	if len(promoCode) > 1 {
		return errors.Wrapf(pricing.ErrInvalidType, "expected at most one promo code, got %d", len(promoCode))
	}
	if err := c.AddItem(p); err != nil {
		return err
	}
	if len(promoCode) == 1 {
		c.ApplyPromoCode(promoCode[0])
	}
	return nil
}

// AddItem validates p and adds one unit of it, incrementing the existing
// line for the same product code. A failed add leaves the cart unchanged.
func (c *Cart) AddItem(p product.Product) error {
	if err := Validate(p); err != nil {
		return err
	}
	if i, ok := c.index[p.Code]; ok {
		c.items[i].Quantity++
		return nil
	}
	c.index[p.Code] = len(c.items)
	c.items = append(c.items, pricing.LineItem{Product: p, Quantity: 1})
	return nil
}

// ApplyPromoCode stores code verbatim, replacing any previous code. The
// empty string is allowed and matches no promotion.
func (c *Cart) ApplyPromoCode(code string) {
	c.promoCode = code
}

// PromoCode returns the currently applied promo code.
func (c *Cart) PromoCode() string {
	return c.promoCode
}

// Len returns the number of distinct products added to the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// Quote prices the cart.
func (c *Cart) Quote() (*pricing.Result, error) {
	res, err := c.engine.Calculate(c.items, c.promoCode)
	if err != nil {
		return nil, errors.Wrap(err, "calculate total")
	}
	return res, nil
}

// Items returns the cart lines followed by any free items added by rules.
// Discounts never change the unit prices shown here.
func (c *Cart) Items() ([]pricing.LineItem, error) {
	res, err := c.Quote()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Total returns the discounted total rounded to two decimal places.
func (c *Cart) Total() (decimal.Decimal, error) {
	res, err := c.Quote()
	if err != nil {
		return decimal.Zero, err
	}
	return res.Total, nil
}

// Lines returns a copy of the lines added to the cart, before any rule.
func (c *Cart) Lines() []pricing.LineItem {
	return slices.Clone(c.items)
}

// Validate checks that p can be added to a cart. The zero Product fails
// with pricing.ErrInvalidType; blank code or name and negative price fail
// with pricing.ErrOutOfRange.
func Validate(p product.Product) error {
	if p.IsZero() {
		return errors.Wrap(pricing.ErrInvalidType, "product is required")
	}
	if strings.TrimSpace(p.Code) == "" {
		return errors.Wrap(pricing.ErrOutOfRange, "product code must be a non-empty string")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrapf(pricing.ErrOutOfRange, "product %q: name must be a non-empty string", p.Code)
	}
	if p.Price.IsNegative() {
		return errors.Wrapf(pricing.ErrOutOfRange, "product %q: price %s must be non-negative", p.Code, p.Price)
	}
	return nil
}

package pricing

import (
	"reflect"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var one = decimal.NewFromInt(1)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-rule debug output.
func WithLogger(lg *zap.Logger) Option {
	return func(e *Engine) {
		if lg != nil {
			e.lg = lg
		}
	}
}

// Engine applies a fixed list of rules to cart snapshots. It holds no
// per-cart state and is safe to share between carts and goroutines.
type Engine struct {
	rules []Rule
	lg    *zap.Logger
}

// NewEngine creates an Engine for the given rules. An empty list installs
// the Identity rule so that totals are always defined. A nil entry, including
// a nil pointer stored in the interface, fails with ErrInvalidType.
func NewEngine(rules []Rule, opts ...Option) (*Engine, error) {
	for i, r := range rules {
		if isNil(r) {
			return nil, errors.Wrapf(ErrInvalidType, "rule #%d is nil", i)
		}
	}
	if len(rules) == 0 {
		rules = []Rule{Identity()}
	}

	e := &Engine{
		rules: slices.Clone(rules),
		lg:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns a copy of the configured rules.
func (e *Engine) Rules() []Rule {
	return slices.Clone(e.rules)
}

// Calculate prices items with the given promo code.
//
// Every rule sees its own copy of the original items, never another rule's
// output. Absolute discounts are summed and taken off the subtotal first;
// the percentage discount then applies to what is left. The total is
// rounded to two decimal places once, at the end.
func (e *Engine) Calculate(items []LineItem, promoCode string) (*Result, error) {
	snapshot := slices.Clone(items)

	var (
		discount      = decimal.Zero
		capped        []decimal.Decimal
		percentage    = decimal.Zero
		percentageIdx = -1
		extras        []LineItem
	)
	for i, r := range e.rules {
		eff := r.Evaluate(slices.Clone(snapshot), promoCode)

		if eff.Discount.IsNegative() || eff.CappedDiscount.IsNegative() {
			return nil, e.ruleError(i, r, ErrNegativeDiscount)
		}
		if eff.Percentage.IsNegative() || eff.Percentage.GreaterThan(one) {
			return nil, e.ruleError(i, r, ErrInvalidPercentage)
		}
		if !eff.Percentage.IsZero() {
			if percentageIdx >= 0 {
				return nil, e.ruleError(i, r, ErrConflictingPercentage)
			}
			percentageIdx = i
			percentage = eff.Percentage
		}
		for _, extra := range eff.ExtraItems {
			if extra.Product.Code == "" || extra.Quantity <= 0 {
				return nil, e.ruleError(i, r, ErrInvalidExtraItem)
			}
			extras = append(extras, LineItem{
				Product:  extra.Product.Free(),
				Quantity: extra.Quantity,
			})
		}
		discount = discount.Add(eff.Discount)
		if !eff.CappedDiscount.IsZero() {
			capped = append(capped, eff.CappedDiscount)
		}

		if ce := e.lg.Check(zap.DebugLevel, "Rule evaluated"); ce != nil {
			ce.Write(
				zap.Int("index", i),
				zap.String("rule", ruleName(r)),
				zap.Stringer("discount", eff.Discount),
				zap.Stringer("capped_discount", eff.CappedDiscount),
				zap.Stringer("percentage", eff.Percentage),
				zap.Int("extra_items", len(eff.ExtraItems)),
			)
		}
	}

	subtotal := Subtotal(snapshot)
	if discount.GreaterThan(subtotal) {
		return nil, errors.Wrapf(ErrDiscountExceedsSubtotal, "discount %s, subtotal %s", discount, subtotal)
	}
	for _, c := range capped {
		discount = discount.Add(decimal.Min(c, subtotal.Sub(discount)))
	}

	afterAbsolute := subtotal.Sub(discount)
	final := afterAbsolute.Sub(afterAbsolute.Mul(percentage))
	if final.IsNegative() {
		return nil, errors.Wrapf(ErrNegativeTotal, "total %s", final)
	}

	res := &Result{
		Subtotal:   subtotal,
		Discount:   discount,
		Percentage: percentage,
		Total:      final.Round(2),
		Items:      append(snapshot, extras...),
	}

	e.lg.Debug("Cart priced",
		zap.Int("lines", len(snapshot)),
		zap.Stringer("subtotal", res.Subtotal),
		zap.Stringer("discount", res.Discount),
		zap.Stringer("percentage", res.Percentage),
		zap.Stringer("total", res.Total),
	)

	return res, nil
}

func (e *Engine) ruleError(i int, r Rule, err error) error {
	return &RuleError{Index: i, Rule: ruleName(r), Err: err}
}

func isNil(r Rule) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

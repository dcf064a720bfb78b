package pricing

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

func referenceRules(t *testing.T) []Rule {
	t.Helper()

	threeForTwo, err := ThreeForTwo("ult_small")
	require.NoError(t, err)
	bulk, err := Bulk("ult_large", 4, d("39.90"))
	require.NoError(t, err)
	bundle, err := Bundle("ult_medium", pack)
	require.NoError(t, err)
	promo, err := PromoCode("I<3AMAYSIM", d("10"))
	require.NoError(t, err)

	return []Rule{threeForTwo, bulk, bundle, promo}
}

func newEngine(t *testing.T, rules ...Rule) *Engine {
	t.Helper()
	e, err := NewEngine(rules)
	require.NoError(t, err)
	return e
}

func discountRule(amount string) Rule {
	return RuleFunc(func([]LineItem, string) Effect {
		return Effect{Discount: d(amount)}
	})
}

func percentageRule(fraction string) Rule {
	return RuleFunc(func([]LineItem, string) Effect {
		return Effect{Percentage: d(fraction)}
	})
}

func TestCalculate_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		items     []LineItem
		promo     string
		wantTotal string
		wantItems []LineItem
	}{
		{
			name:      "3 x ult_small, 1 x ult_large",
			items:     []LineItem{line(small, 3), line(large, 1)},
			wantTotal: "94.70",
			wantItems: []LineItem{line(small, 3), line(large, 1)},
		},
		{
			name:      "2 x ult_small, 4 x ult_large",
			items:     []LineItem{line(small, 2), line(large, 4)},
			wantTotal: "209.40",
			wantItems: []LineItem{line(small, 2), line(large, 4)},
		},
		{
			name:      "1 x ult_small, 2 x ult_medium",
			items:     []LineItem{line(small, 1), line(medium, 2)},
			wantTotal: "84.70",
			wantItems: []LineItem{line(small, 1), line(medium, 2), line(pack.Free(), 2)},
		},
		{
			name:      "1 x ult_small, 1 x 1gb with promo code",
			items:     []LineItem{line(small, 1), line(pack, 1)},
			promo:     "I<3AMAYSIM",
			wantTotal: "31.32",
			wantItems: []LineItem{line(small, 1), line(pack, 1)},
		},
	}

	e := newEngine(t, referenceRules(t)...)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Calculate(tt.items, tt.promo)
			require.NoError(t, err)
			assert.True(t, d(tt.wantTotal).Equal(res.Total),
				"expected total %s, got %s", tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantItems, res.Items)
		})
	}
}

func TestCalculate_NoRules(t *testing.T) {
	for _, rules := range [][]Rule{nil, {}} {
		e, err := NewEngine(rules)
		require.NoError(t, err)
		require.Len(t, e.Rules(), 1)

		res, err := e.Calculate([]LineItem{line(small, 3), line(pack, 2)}, "I<3AMAYSIM")
		require.NoError(t, err)
		assert.True(t, d("94.50").Equal(res.Total), "got %s", res.Total)
		assert.True(t, res.Subtotal.Equal(res.Total))
	}
}

func TestCalculate_EmptyCart(t *testing.T) {
	e := newEngine(t, referenceRules(t)...)

	res, err := e.Calculate(nil, "I<3AMAYSIM")
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
	assert.Empty(t, res.Items)
}

func TestCalculate_OrderIndependent(t *testing.T) {
	rules := referenceRules(t)

	carts := []struct {
		items []LineItem
		promo string
	}{
		{items: []LineItem{line(small, 3), line(large, 1)}},
		{items: []LineItem{line(small, 4), line(medium, 2), line(large, 5)}, promo: "I<3AMAYSIM"},
		{items: []LineItem{line(medium, 1), line(pack, 1)}, promo: "I<3AMAYSIM"},
		{items: []LineItem{line(small, 6), line(large, 4), line(medium, 3)}, promo: "nope"},
	}

	for _, cart := range carts {
		want, err := newEngine(t, rules...).Calculate(cart.items, cart.promo)
		require.NoError(t, err)

		for _, perm := range permutations(rules) {
			got, err := newEngine(t, perm...).Calculate(cart.items, cart.promo)
			require.NoError(t, err)
			assert.True(t, want.Total.Equal(got.Total),
				"expected total %s, got %s", want.Total, got.Total)
			assert.ElementsMatch(t, want.Items, got.Items)
		}
	}
}

func TestCalculate_PromoAppliesAfterAbsoluteDiscounts(t *testing.T) {
	threeForTwo, err := ThreeForTwo("ult_small")
	require.NoError(t, err)
	promo, err := PromoCode("SAVE", d("10"))
	require.NoError(t, err)
	e := newEngine(t, promo, threeForTwo)

	// (74.70 - 24.90) * 0.9 = 44.82, not 74.70 * 0.9 - 24.90 = 42.33.
	res, err := e.Calculate([]LineItem{line(small, 3)}, "SAVE")
	require.NoError(t, err)
	assert.True(t, d("44.82").Equal(res.Total), "got %s", res.Total)
	assert.True(t, d("74.70").Equal(res.Subtotal))
	assert.True(t, d("24.90").Equal(res.Discount))
	assert.True(t, d("0.1").Equal(res.Percentage))
}

func TestCalculate_BundleExcludedFromSubtotal(t *testing.T) {
	bundle, err := Bundle("ult_medium", pack)
	require.NoError(t, err)
	e := newEngine(t, bundle)

	res, err := e.Calculate([]LineItem{line(medium, 3)}, "")
	require.NoError(t, err)
	assert.True(t, d("89.70").Equal(res.Total), "got %s", res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 3, res.Items[1].Quantity)
	assert.True(t, res.Items[1].Product.Price.IsZero())
}

func TestCalculate_ExtraItemsForcedToZeroPrice(t *testing.T) {
	e := newEngine(t, RuleFunc(func([]LineItem, string) Effect {
		return Effect{ExtraItems: []LineItem{line(pack, 1)}}
	}))

	res, err := e.Calculate([]LineItem{line(small, 1)}, "")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[1].Product.Price.IsZero())
	assert.True(t, d("24.90").Equal(res.Total))
}

func TestCalculate_RulesSeeOriginalSnapshot(t *testing.T) {
	var seen []int
	mutating := RuleFunc(func(items []LineItem, _ string) Effect {
		for i := range items {
			items[i].Quantity = 100
		}
		return Effect{ExtraItems: []LineItem{line(pack, 5)}}
	})
	observing := RuleFunc(func(items []LineItem, _ string) Effect {
		for _, it := range items {
			seen = append(seen, it.Quantity)
		}
		return Effect{}
	})

	input := []LineItem{line(small, 2)}
	res, err := newEngine(t, mutating, observing).Calculate(input, "")
	require.NoError(t, err)

	assert.Equal(t, []int{2}, seen)
	assert.Equal(t, 2, input[0].Quantity)
	assert.True(t, d("49.80").Equal(res.Total), "got %s", res.Total)
}

func TestCalculate_Idempotent(t *testing.T) {
	e := newEngine(t, referenceRules(t)...)
	items := []LineItem{line(small, 4), line(medium, 1), line(large, 4)}

	first, err := e.Calculate(items, "I<3AMAYSIM")
	require.NoError(t, err)
	second, err := e.Calculate(items, "I<3AMAYSIM")
	require.NoError(t, err)

	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, first.Items, second.Items)
}

func TestCalculate_Validation(t *testing.T) {
	items := []LineItem{line(small, 1)}

	tests := []struct {
		name    string
		rules   []Rule
		wantErr error
	}{
		{
			name:    "negative discount",
			rules:   []Rule{discountRule("-10")},
			wantErr: ErrNegativeDiscount,
		},
		{
			name: "negative capped discount",
			rules: []Rule{RuleFunc(func([]LineItem, string) Effect {
				return Effect{CappedDiscount: d("-1")}
			})},
			wantErr: ErrNegativeDiscount,
		},
		{
			name:    "discount exceeds subtotal",
			rules:   []Rule{discountRule("49.80")},
			wantErr: ErrDiscountExceedsSubtotal,
		},
		{
			name:    "cumulative discount exceeds subtotal",
			rules:   []Rule{discountRule("20"), discountRule("5")},
			wantErr: ErrDiscountExceedsSubtotal,
		},
		{
			name:    "percentage below zero",
			rules:   []Rule{percentageRule("-0.1")},
			wantErr: ErrInvalidPercentage,
		},
		{
			name:    "percentage above one",
			rules:   []Rule{percentageRule("1.5")},
			wantErr: ErrInvalidPercentage,
		},
		{
			name:    "two percentages",
			rules:   []Rule{percentageRule("0.1"), percentageRule("0.2")},
			wantErr: ErrConflictingPercentage,
		},
		{
			name: "extra item without quantity",
			rules: []Rule{RuleFunc(func([]LineItem, string) Effect {
				return Effect{ExtraItems: []LineItem{line(pack, 0)}}
			})},
			wantErr: ErrInvalidExtraItem,
		},
		{
			name: "bulk price above unit price",
			rules: func() []Rule {
				r, err := Bulk("ult_small", 1, d("30"))
				require.NoError(t, err)
				return []Rule{r}
			}(),
			wantErr: ErrNegativeDiscount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newEngine(t, tt.rules...).Calculate(items, "")
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrOutOfRange)
			assert.NotErrorIs(t, err, ErrInvalidType)
			assert.Nil(t, res)
		})
	}
}

func TestCalculate_RuleErrorNamesRule(t *testing.T) {
	threeForTwo, err := ThreeForTwo("ult_small")
	require.NoError(t, err)
	e := newEngine(t, threeForTwo, percentageRule("2"))

	_, err = e.Calculate([]LineItem{line(small, 1)}, "")

	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, 1, ruleErr.Index)
	assert.Contains(t, ruleErr.Error(), "rule #1")
}

func TestCalculate_PercentageBoundaries(t *testing.T) {
	items := []LineItem{line(small, 1)}

	res, err := newEngine(t, percentageRule("0")).Calculate(items, "")
	require.NoError(t, err)
	assert.True(t, d("24.90").Equal(res.Total))

	res, err = newEngine(t, percentageRule("1")).Calculate(items, "")
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
	assert.False(t, res.Total.IsNegative())
}

func TestCalculate_ZeroPercentageDoesNotConflict(t *testing.T) {
	e := newEngine(t, percentageRule("0"), percentageRule("0.5"), percentageRule("0"))

	res, err := e.Calculate([]LineItem{line(small, 2)}, "")
	require.NoError(t, err)
	assert.True(t, d("24.90").Equal(res.Total), "got %s", res.Total)
}

func TestCalculate_DiscountEqualToSubtotal(t *testing.T) {
	exact := RuleFunc(func(items []LineItem, _ string) Effect {
		return Effect{Discount: Subtotal(items)}
	})

	res, err := newEngine(t, exact).Calculate([]LineItem{line(small, 1)}, "")
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
}

func TestCalculate_RoundsOnlyAtTheEnd(t *testing.T) {
	penny := product.New("penny", "Penny", d("0.333"))
	res, err := newEngine(t).Calculate([]LineItem{line(penny, 3)}, "")
	require.NoError(t, err)
	assert.Equal(t, "1", res.Total.String())
	assert.True(t, d("0.999").Equal(res.Subtotal))
}

func TestNewEngine_NilRule(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{name: "nil interface", rule: nil},
		{name: "nil bulk rule", rule: (*BulkRule)(nil)},
		{name: "nil promo amount rule", rule: (*PromoAmountRule)(nil)},
		{name: "nil func", rule: RuleFunc(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine([]Rule{Identity(), tt.rule})
			require.ErrorIs(t, err, ErrInvalidType)
			assert.NotErrorIs(t, err, ErrOutOfRange)
			assert.Nil(t, e)
		})
	}
}

func TestCalculate_LogsRuleEffects(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine(referenceRules(t), WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = e.Calculate([]LineItem{line(small, 3)}, "")
	require.NoError(t, err)

	assert.Equal(t, 4, logs.FilterMessage("Rule evaluated").Len())
	entries := logs.FilterMessage("Cart priced").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "49.8", entries[0].ContextMap()["total"])
}

func permutations(rules []Rule) [][]Rule {
	if len(rules) <= 1 {
		return [][]Rule{append([]Rule(nil), rules...)}
	}
	var out [][]Rule
	for i := range rules {
		rest := make([]Rule, 0, len(rules)-1)
		rest = append(rest, rules[:i]...)
		rest = append(rest, rules[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Rule{rules[i]}, p...))
		}
	}
	return out
}

package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoAmount(t *testing.T) {
	rule, err := PromoAmount("OVER9", d("9"), 2)
	require.NoError(t, err)
	assert.Equal(t, "promo(OVER9,-9.00)", rule.String())

	tests := []struct {
		name  string
		items []LineItem
		promo string
		want  decimal.Decimal
	}{
		{name: "applies", items: []LineItem{line(small, 2)}, promo: "OVER9", want: d("9")},
		{name: "wrong code", items: []LineItem{line(small, 2)}, promo: "OVER10", want: decimal.Zero},
		{name: "too few items", items: []LineItem{line(small, 1)}, promo: "OVER9", want: decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := rule.Evaluate(tt.items, tt.promo)
			assert.True(t, tt.want.Equal(eff.CappedDiscount), "got %s", eff.CappedDiscount)
			assert.True(t, eff.Discount.IsZero())
			assert.True(t, eff.Percentage.IsZero())
		})
	}
}

func TestPromoAmount_WithEngine(t *testing.T) {
	rule, err := PromoAmount("OVER50", d("50"), 0)
	require.NoError(t, err)
	engine, err := NewEngine([]Rule{rule})
	require.NoError(t, err)

	res, err := engine.Calculate([]LineItem{line(pack, 2)}, "OVER50")
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero(), "got %s", res.Total)
}

func TestPromoAmount_CappedAfterOtherDiscounts(t *testing.T) {
	threeForTwo, err := ThreeForTwo("ult_small")
	require.NoError(t, err)
	big, err := PromoAmount("BIG", d("100"), 0)
	require.NoError(t, err)

	tests := []struct {
		name         string
		rules        []Rule
		items        []LineItem
		wantDiscount string
		wantTotal    string
	}{
		{
			name:         "stacked with three for two",
			rules:        []Rule{threeForTwo, big},
			items:        []LineItem{line(small, 3)},
			wantDiscount: "74.70",
			wantTotal:    "0",
		},
		{
			name:         "rule order does not matter",
			rules:        []Rule{big, threeForTwo},
			items:        []LineItem{line(small, 3)},
			wantDiscount: "74.70",
			wantTotal:    "0",
		},
		{
			name:         "amount below remainder",
			rules:        []Rule{threeForTwo, mustPromoAmount(t, "BIG", "10")},
			items:        []LineItem{line(small, 3)},
			wantDiscount: "34.90",
			wantTotal:    "39.80",
		},
		{
			name:         "free items only",
			rules:        []Rule{big},
			items:        []LineItem{line(pack.Free(), 3)},
			wantDiscount: "0",
			wantTotal:    "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newEngine(t, tt.rules...).Calculate(tt.items, "BIG")
			require.NoError(t, err)
			assert.True(t, d(tt.wantDiscount).Equal(res.Discount), "discount %s", res.Discount)
			assert.True(t, d(tt.wantTotal).Equal(res.Total), "total %s", res.Total)
		})
	}
}

func TestCheapestFree_StackedWithBulk(t *testing.T) {
	bulk, err := Bulk("ult_large", 4, d("39.90"))
	require.NoError(t, err)
	free, err := CheapestFree("FREE", 0)
	require.NoError(t, err)
	amount := mustPromoAmount(t, "FREE", "500")

	res, err := newEngine(t, bulk, free, amount).Calculate([]LineItem{line(large, 4)}, "FREE")
	require.NoError(t, err)
	assert.True(t, d("179.60").Equal(res.Discount), "discount %s", res.Discount)
	assert.True(t, res.Total.IsZero(), "total %s", res.Total)
}

func mustPromoAmount(t *testing.T, code, amount string) *PromoAmountRule {
	t.Helper()
	r, err := PromoAmount(code, d(amount), 0)
	require.NoError(t, err)
	return r
}

func TestCheapestFree(t *testing.T) {
	rule, err := CheapestFree("BIRTHDAY", 0)
	require.NoError(t, err)

	eff := rule.Evaluate([]LineItem{line(large, 1), line(pack, 2), line(medium, 1)}, "BIRTHDAY")
	assert.True(t, d("9.90").Equal(eff.CappedDiscount), "got %s", eff.CappedDiscount)

	eff = rule.Evaluate(nil, "BIRTHDAY")
	assert.True(t, eff.CappedDiscount.IsZero())

	eff = rule.Evaluate([]LineItem{line(large, 1)}, "")
	assert.True(t, eff.CappedDiscount.IsZero())
}

func TestCheapestFree_MinItems(t *testing.T) {
	rule, err := CheapestFree("BUYGETON", 2)
	require.NoError(t, err)

	assert.True(t, rule.Evaluate([]LineItem{line(small, 1)}, "BUYGETON").CappedDiscount.IsZero())
	assert.True(t, d("24.90").Equal(rule.Evaluate([]LineItem{line(small, 2)}, "BUYGETON").CappedDiscount))
}

func TestCoupon_InvalidParams(t *testing.T) {
	_, err := PromoAmount("", d("1"), 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = PromoAmount("X", d("-1"), 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = PromoAmount("X", d("1"), -1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = CheapestFree("", 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = CheapestFree("X", -2)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestUnits(t *testing.T) {
	assert.Equal(t, 0, Units(nil))
	assert.Equal(t, 5, Units([]LineItem{line(small, 2), line(pack, 3)}))
}

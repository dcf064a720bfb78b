package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var (
	small  = product.New("ult_small", "Unlimited 1GB", d("24.90"))
	medium = product.New("ult_medium", "Unlimited 2GB", d("29.90"))
	large  = product.New("ult_large", "Unlimited 5GB", d("44.90"))
	pack   = product.New("1gb", "1 GB Data-pack", d("9.90"))
)

func line(p product.Product, qty int) LineItem {
	return LineItem{Product: p, Quantity: qty}
}

func TestThreeForTwo(t *testing.T) {
	rule, err := ThreeForTwo("ult_small")
	require.NoError(t, err)

	tests := []struct {
		qty  int
		want decimal.Decimal
	}{
		{qty: 1, want: decimal.Zero},
		{qty: 2, want: decimal.Zero},
		{qty: 3, want: d("24.90")},
		{qty: 4, want: d("24.90")},
		{qty: 5, want: d("24.90")},
		{qty: 6, want: d("49.80")},
		{qty: 9, want: d("74.70")},
	}

	for _, tt := range tests {
		eff := rule.Evaluate([]LineItem{line(small, tt.qty)}, "")
		assert.True(t, tt.want.Equal(eff.Discount),
			"qty %d: expected discount %s, got %s", tt.qty, tt.want, eff.Discount)
		assert.Empty(t, eff.ExtraItems)
		assert.True(t, eff.Percentage.IsZero())
	}
}

func TestThreeForTwo_ProductAbsent(t *testing.T) {
	rule, err := ThreeForTwo("ult_small")
	require.NoError(t, err)

	eff := rule.Evaluate([]LineItem{line(large, 6)}, "")
	assert.True(t, eff.Discount.IsZero())
}

func TestNForM(t *testing.T) {
	// Buy 5, pay 3: two free units per full group.
	rule, err := NForM("ult_medium", 5, 3)
	require.NoError(t, err)

	eff := rule.Evaluate([]LineItem{line(medium, 11)}, "")
	assert.True(t, d("119.60").Equal(eff.Discount), "got %s", eff.Discount)
	assert.Equal(t, "5-for-3(ult_medium)", rule.String())
}

func TestNForM_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		code string
		n, m int
	}{
		{name: "blank code", code: " ", n: 3, m: 2},
		{name: "zero n", code: "x", n: 0, m: 0},
		{name: "negative m", code: "x", n: 3, m: -1},
		{name: "m equals n", code: "x", n: 2, m: 2},
		{name: "m above n", code: "x", n: 2, m: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NForM(tt.code, tt.n, tt.m)
			require.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestBulk(t *testing.T) {
	rule, err := Bulk("ult_large", 4, d("39.90"))
	require.NoError(t, err)

	tests := []struct {
		qty  int
		want decimal.Decimal
	}{
		{qty: 1, want: decimal.Zero},
		{qty: 3, want: decimal.Zero},
		{qty: 4, want: d("20.00")},
		{qty: 5, want: d("25.00")},
	}

	for _, tt := range tests {
		eff := rule.Evaluate([]LineItem{line(large, tt.qty)}, "")
		assert.True(t, tt.want.Equal(eff.Discount),
			"qty %d: expected discount %s, got %s", tt.qty, tt.want, eff.Discount)
	}
}

func TestBulk_InvalidParams(t *testing.T) {
	_, err := Bulk("", 4, d("1"))
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = Bulk("ult_large", 0, d("1"))
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = Bulk("ult_large", 4, d("-1"))
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestBundle(t *testing.T) {
	rule, err := Bundle("ult_medium", pack)
	require.NoError(t, err)

	eff := rule.Evaluate([]LineItem{line(small, 1), line(medium, 3)}, "")
	require.Len(t, eff.ExtraItems, 1)
	extra := eff.ExtraItems[0]
	assert.Equal(t, "1gb", extra.Product.Code)
	assert.Equal(t, "1 GB Data-pack", extra.Product.Name)
	assert.True(t, extra.Product.Price.IsZero())
	assert.Equal(t, 3, extra.Quantity)
	assert.True(t, eff.Discount.IsZero())

	eff = rule.Evaluate([]LineItem{line(small, 1)}, "")
	assert.Empty(t, eff.ExtraItems)
}

func TestBundle_InvalidParams(t *testing.T) {
	_, err := Bundle("", pack)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = Bundle("ult_medium", product.Product{})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestPromoCode(t *testing.T) {
	rule, err := PromoCode("I<3AMAYSIM", d("10"))
	require.NoError(t, err)

	eff := rule.Evaluate(nil, "I<3AMAYSIM")
	assert.True(t, d("0.1").Equal(eff.Percentage), "got %s", eff.Percentage)

	for _, code := range []string{"", "i<3amaysim", "OTHER"} {
		eff = rule.Evaluate(nil, code)
		assert.True(t, eff.Percentage.IsZero(), "code %q should not match", code)
	}
}

func TestPromoCode_InvalidParams(t *testing.T) {
	_, err := PromoCode("", d("10"))
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = PromoCode("X", d("-1"))
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = PromoCode("X", d("100.01"))
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = PromoCode("X", d("100"))
	require.NoError(t, err)
}

func TestIdentity(t *testing.T) {
	eff := Identity().Evaluate([]LineItem{line(small, 3)}, "ANY")
	assert.True(t, eff.Discount.IsZero())
	assert.True(t, eff.Percentage.IsZero())
	assert.Empty(t, eff.ExtraItems)
}

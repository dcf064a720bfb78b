package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
)

// Quote is a priced cart.
type Quote struct {
	ID        string
	Items     []pricing.LineItem
	Subtotal  decimal.Decimal
	Discounts decimal.Decimal
	Total     decimal.Decimal
	PromoCode string
	CreatedAt time.Time
}

// Item is a requested cart line.
type Item struct {
	ProductCode string
	Quantity    int
}

// Request holds the input for pricing a cart. A nil PromoCode means no
// promo code was supplied.
type Request struct {
	Items     []Item
	PromoCode *string
}

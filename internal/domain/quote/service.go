// Package quote prices carts described by product codes and quantities.
package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

const (
	// MaxQuantity bounds the units of a single line in one request.
	MaxQuantity = 10_000
	// MaxUnits bounds the units of all lines of one cart.
	MaxUnits = 10_000
)

// Sentinel errors for request validation.
var (
	ErrEmptyItems = errors.Wrap(pricing.ErrOutOfRange, "items required")
	ErrEmptyBatch = errors.Wrap(pricing.ErrOutOfRange, "at least one cart required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductCode string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductCode)
}

// InvalidQuantityError indicates a line item quantity outside
// [1, MaxQuantity].
type InvalidQuantityError struct {
	ProductCode string
	Quantity    int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for product %s must be between 1 and %d", e.Quantity, e.ProductCode, MaxQuantity)
}

// TooManyUnitsError indicates a cart whose lines add up to more than
// MaxUnits.
type TooManyUnitsError struct {
	Units int
}

func (e *TooManyUnitsError) Error() string {
	return fmt.Sprintf("cart of %d units exceeds limit of %d", e.Units, MaxUnits)
}

// BatchTooLargeError indicates a batch exceeding the configured limit.
type BatchTooLargeError struct {
	Size, Max int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch of %d carts exceeds limit of %d", e.Size, e.Max)
}

// Service prices carts against a shared catalog and engine.
type Service struct {
	products product.Catalog
	engine   *pricing.Engine
	maxBatch int
	workers  int
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBatchLimits bounds QuoteBatch to at most maxBatch carts priced by at
// most workers goroutines. Non-positive values mean no limit.
func WithBatchLimits(maxBatch, workers int) Option {
	return func(s *Service) {
		s.maxBatch = maxBatch
		s.workers = workers
	}
}

// NewService creates a quote Service.
func NewService(products product.Catalog, engine *pricing.Engine, opts ...Option) *Service {
	s := &Service{
		products: products,
		engine:   engine,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote validates the request, fills a fresh cart and prices it.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var (
		products = make([]product.Product, len(req.Items))
		units    int
	)
	for i, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{ProductCode: item.ProductCode, Quantity: item.Quantity}
		}
		if units += item.Quantity; units > MaxUnits {
			return nil, &TooManyUnitsError{Units: units}
		}
		p, ok := s.products.Lookup(item.ProductCode)
		if !ok {
			return nil, &ProductNotFoundError{ProductCode: item.ProductCode}
		}
		products[i] = p
	}

	c := cart.NewWithEngine(s.engine)
	for i, item := range req.Items {
		for range item.Quantity {
			if err := c.AddItem(products[i]); err != nil {
				return nil, errors.Wrapf(err, "add %s", item.ProductCode)
			}
		}
	}
	if req.PromoCode != nil {
		c.ApplyPromoCode(*req.PromoCode)
	}

	res, err := c.Quote()
	if err != nil {
		return nil, err
	}

	return &Quote{
		ID:        uuid.New().String(),
		Items:     res.Items,
		Subtotal:  res.Subtotal.Round(2),
		Discounts: res.Subtotal.Sub(res.Total).Round(2),
		Total:     res.Total,
		PromoCode: c.PromoCode(),
		CreatedAt: s.now(),
	}, nil
}

// QuoteBatch prices independent carts concurrently. Results keep the
// request order. The first failure cancels the remaining work and is
// returned with the index of the failing cart.
func (s *Service) QuoteBatch(ctx context.Context, reqs []Request) ([]*Quote, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.maxBatch > 0 && len(reqs) > s.maxBatch {
		return nil, &BatchTooLargeError{Size: len(reqs), Max: s.maxBatch}
	}

	quotes := make([]*Quote, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	if s.workers > 0 {
		g.SetLimit(s.workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			q, err := s.Quote(ctx, req)
			if err != nil {
				return errors.Wrapf(err, "cart #%d", i)
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quotes, nil
}

// Package catalog provides the compiled-in product table.
package catalog

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

var _ product.Catalog = (*Catalog)(nil)

// Product codes of the default table.
const (
	UnlimitedSmall  = "ult_small"
	UnlimitedMedium = "ult_medium"
	UnlimitedLarge  = "ult_large"
	DataPack1GB     = "1gb"
)

var defaultProducts = []product.Product{
	product.New(UnlimitedSmall, "Unlimited 1GB", decimal.RequireFromString("24.90")),
	product.New(UnlimitedMedium, "Unlimited 2GB", decimal.RequireFromString("29.90")),
	product.New(UnlimitedLarge, "Unlimited 5GB", decimal.RequireFromString("44.90")),
	product.New(DataPack1GB, "1 GB Data-pack", decimal.RequireFromString("9.90")),
}

// Catalog is a read-only, in-memory product table keyed by product code.
type Catalog struct {
	byCode map[string]product.Product
}

// Default returns the catalog of SIM plans and data packs.
func Default() *Catalog {
	c, err := New(defaultProducts...)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog from the given products. Codes must be non-blank and
// unique.
func New(products ...product.Product) (*Catalog, error) {
	byCode := make(map[string]product.Product, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.Code) == "" {
			return nil, errors.New("product code is required")
		}
		if _, ok := byCode[p.Code]; ok {
			return nil, errors.Errorf("duplicate product code %q", p.Code)
		}
		byCode[p.Code] = p
	}
	return &Catalog{byCode: byCode}, nil
}

// Lookup returns the product registered under code.
func (c *Catalog) Lookup(code string) (product.Product, bool) {
	p, ok := c.byCode[code]
	return p, ok
}

// MustLookup is like Lookup but panics on a miss. Intended for tests and
// static tables.
func (c *Catalog) MustLookup(code string) product.Product {
	p, ok := c.byCode[code]
	if !ok {
		panic("catalog: unknown product " + code)
	}
	return p
}

// List returns all products ordered by code.
func (c *Catalog) List() []product.Product {
	out := make([]product.Product, 0, len(c.byCode))
	for _, p := range c.byCode {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

package product

import (
	"github.com/shopspring/decimal"
)

// Product represents a catalog item available for purchase.
type Product struct {
	Code  string
	Name  string
	Price decimal.Decimal
}

// New returns a Product with the given code, name and unit price.
func New(code, name string, price decimal.Decimal) Product {
	return Product{Code: code, Name: name, Price: price}
}

// IsZero reports whether p is the zero Product, i.e. no product at all.
func (p Product) IsZero() bool {
	return p.Code == "" && p.Name == "" && p.Price.IsZero()
}

// Free returns a copy of p priced at zero.
func (p Product) Free() Product {
	p.Price = decimal.Zero
	return p
}

// Catalog defines read operations for the product catalog.
type Catalog interface {
	// Lookup returns the product for code. The boolean is false when no such
	// product exists; a miss is not an error.
	Lookup(code string) (Product, bool)
	List() []Product
}

// Package ruleset builds pricing rules from a declarative YAML document.
//
// A document lists rules by kind:
//
//	rules:
//	  - kind: three_for_two
//	    product: ult_small
//	  - kind: n_for_m
//	    product: ult_medium
//	    buy: 5
//	    pay: 4
//	  - kind: bulk
//	    product: ult_large
//	    min_quantity: 4
//	    price: "39.90"
//	  - kind: bundle
//	    product: ult_medium
//	    bundled: 1gb
//	  - kind: promo_code
//	    code: I<3AMAYSIM
//	    percent: 10
//	  - kind: promo_amount
//	    code: OVER9000
//	    amount: 9
//	  - kind: promo_cheapest_free
//	    code: BUYGETON
//	    min_items: 2
//
// Product codes are resolved against a catalog, so a typo fails at load
// time rather than silently never matching.
package ruleset

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

//go:embed default.yaml
var defaultDocument []byte

// Kind enumerates the supported rule kinds.
type Kind string

const (
	// KindNForM gives away buy-pay of every buy units.
	KindNForM Kind = "n_for_m"
	// KindThreeForTwo is n_for_m with buy 3, pay 2.
	KindThreeForTwo Kind = "three_for_two"
	// KindBulk reprices all units once a minimum quantity is reached.
	KindBulk Kind = "bulk"
	// KindBundle adds a free product per unit of a trigger product.
	KindBundle Kind = "bundle"
	// KindPromoCode takes a percentage off with a matching promo code.
	KindPromoCode Kind = "promo_code"
	// KindPromoAmount takes a fixed amount off with a matching promo code.
	KindPromoAmount Kind = "promo_amount"
	// KindCheapestFree makes the cheapest unit free with a matching promo code.
	KindCheapestFree Kind = "promo_cheapest_free"
)

// Document is the top-level rule-set file.
type Document struct {
	Rules []Config `yaml:"rules"`
}

// Config describes a single rule. Which fields are used depends on Kind.
type Config struct {
	Kind        Kind    `yaml:"kind"`
	Product     string  `yaml:"product"`
	Buy         int     `yaml:"buy"`
	Pay         int     `yaml:"pay"`
	MinQuantity int     `yaml:"min_quantity"`
	Price       *Amount `yaml:"price"`
	Bundled     string  `yaml:"bundled"`
	Code        string  `yaml:"code"`
	Percent     *Amount `yaml:"percent"`
	Amount      *Amount `yaml:"amount"`
	MinItems    int     `yaml:"min_items"`
}

// Amount is a decimal scalar. Both quoted and bare numbers are accepted.
type Amount struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Amount) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errors.Wrapf(pricing.ErrInvalidType, "line %d: expected a number", n.Line)
	}
	v, err := decimal.NewFromString(n.Value)
	if err != nil {
		return errors.Wrapf(pricing.ErrInvalidType, "line %d: %q is not a number", n.Line, n.Value)
	}
	a.Decimal = v
	return nil
}

// Default returns the built-in promotions.
func Default(catalog product.Catalog) ([]pricing.Rule, error) {
	return Parse(defaultDocument, catalog)
}

// Load reads and parses the rule-set file at path.
func Load(path string, catalog product.Catalog) ([]pricing.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read rules file %s", path)
	}
	rules, err := Parse(data, catalog)
	if err != nil {
		return nil, errors.Wrapf(err, "parse rules file %s", path)
	}
	return rules, nil
}

// Parse decodes a rule-set document and builds its rules in order.
func Parse(data []byte, catalog product.Catalog) ([]pricing.Rule, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, pricing.ErrInvalidType) {
			return nil, err
		}
		return nil, errors.Wrapf(pricing.ErrInvalidType, "decode rules: %v", err)
	}

	rules := make([]pricing.Rule, 0, len(doc.Rules))
	for i, cfg := range doc.Rules {
		r, err := Build(cfg, catalog)
		if err != nil {
			return nil, errors.Wrapf(err, "rule #%d (%s)", i, cfg.Kind)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Build constructs the rule described by cfg.
func Build(cfg Config, catalog product.Catalog) (pricing.Rule, error) {
	switch cfg.Kind {
	case KindThreeForTwo:
		if err := requireProduct(catalog, cfg.Product); err != nil {
			return nil, err
		}
		return asRule(pricing.ThreeForTwo(cfg.Product))
	case KindNForM:
		if err := requireProduct(catalog, cfg.Product); err != nil {
			return nil, err
		}
		return asRule(pricing.NForM(cfg.Product, cfg.Buy, cfg.Pay))
	case KindBulk:
		if err := requireProduct(catalog, cfg.Product); err != nil {
			return nil, err
		}
		if cfg.Price == nil {
			return nil, errors.Wrap(pricing.ErrInvalidType, "price is required")
		}
		return asRule(pricing.Bulk(cfg.Product, cfg.MinQuantity, cfg.Price.Decimal))
	case KindBundle:
		if err := requireProduct(catalog, cfg.Product); err != nil {
			return nil, err
		}
		bundled, ok := catalog.Lookup(cfg.Bundled)
		if !ok {
			return nil, errors.Wrapf(pricing.ErrOutOfRange, "unknown bundled product %q", cfg.Bundled)
		}
		return asRule(pricing.Bundle(cfg.Product, bundled))
	case KindPromoCode:
		if cfg.Percent == nil {
			return nil, errors.Wrap(pricing.ErrInvalidType, "percent is required")
		}
		return asRule(pricing.PromoCode(cfg.Code, cfg.Percent.Decimal))
	case KindPromoAmount:
		if cfg.Amount == nil {
			return nil, errors.Wrap(pricing.ErrInvalidType, "amount is required")
		}
		return asRule(pricing.PromoAmount(cfg.Code, cfg.Amount.Decimal, cfg.MinItems))
	case KindCheapestFree:
		return asRule(pricing.CheapestFree(cfg.Code, cfg.MinItems))
	default:
		return nil, errors.Wrapf(pricing.ErrOutOfRange, "unsupported rule kind %q", cfg.Kind)
	}
}

func requireProduct(catalog product.Catalog, code string) error {
	if _, ok := catalog.Lookup(code); !ok {
		return errors.Wrapf(pricing.ErrOutOfRange, "unknown product %q", code)
	}
	return nil
}

// asRule converts a constructor result to the interface without turning a
// nil pointer into a non-nil Rule.
func asRule[T pricing.Rule](r T, err error) (pricing.Rule, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

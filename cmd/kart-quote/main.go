// Command kart-quote prices a cart from the command line.
//
//	kart-quote -promo 'I<3AMAYSIM' ult_small ult_small 1gb
//
// Each positional argument adds one unit of the product with that code.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/kart-pricing/internal/catalog"
	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/ruleset"
)

type options struct {
	rulesFile string
	promoCode string
	codes     []string
}

func main() {
	var (
		opts    options
		verbose bool
	)
	flag.StringVar(&opts.rulesFile, "rules", "", "pricing rules YAML file (default: built-in promotions)")
	flag.StringVar(&opts.promoCode, "promo", "", "promo code to apply")
	flag.BoolVar(&verbose, "v", false, "log rule evaluation")
	flag.Parse()
	opts.codes = flag.Args()

	lg := newLogger(verbose)
	defer func() { _ = lg.Sync() }()

	if err := run(os.Stdout, lg, opts); err != nil {
		lg.Error("Quote failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}

func run(out io.Writer, lg *zap.Logger, opts options) error {
	if len(opts.codes) == 0 {
		return errors.New("no product codes given")
	}

	products := catalog.Default()
	var (
		rules []pricing.Rule
		err   error
	)
	if opts.rulesFile == "" {
		rules, err = ruleset.Default(products)
	} else {
		rules, err = ruleset.Load(opts.rulesFile, products)
	}
	if err != nil {
		return errors.Wrap(err, "load rules")
	}

	engine, err := pricing.NewEngine(rules, pricing.WithLogger(lg))
	if err != nil {
		return errors.Wrap(err, "create engine")
	}
	c := cart.NewWithEngine(engine)
	for _, code := range opts.codes {
		p, ok := products.Lookup(code)
		if !ok {
			return errors.Errorf("unknown product %q", code)
		}
		if err := c.Add(p); err != nil {
			return errors.Wrapf(err, "add %s", code)
		}
	}
	if opts.promoCode != "" {
		c.ApplyPromoCode(opts.promoCode)
	}

	res, err := c.Quote()
	if err != nil {
		return err
	}
	return printQuote(out, res)
}

func printQuote(out io.Writer, res *pricing.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tQTY\tUNIT PRICE")
	for _, it := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.Product.Code, it.Product.Name, it.Quantity, it.Product.Price.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "write items")
	}
	_, err := fmt.Fprintf(out, "\nSubtotal: %s\nTotal:    %s\n", res.Subtotal.StringFixed(2), res.Total.StringFixed(2))
	return err
}

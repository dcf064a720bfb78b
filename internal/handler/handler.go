// Package handler exposes the catalog and cart quoting over HTTP.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/domain/quote"
)

const (
	instrumentationName = "github.com/xenking/kart-pricing/internal/handler"
	defaultMaxBodyBytes = 1 << 20
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes caps the request body size. Zero means 1 MiB.
	MaxBodyBytes int64

	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Handler serves the product and quote endpoints, delegating pricing to the
// quote service.
type Handler struct {
	products product.Catalog
	quotes   *quote.Service
	maxBody  int64

	tracer     trace.Tracer
	quoteCount metric.Int64Counter
	quoteTotal metric.Float64Histogram
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, products product.Catalog, quotes *quote.Service) (*Handler, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	quoteCount, err := meter.Int64Counter("kart.quotes",
		metric.WithDescription("Number of priced carts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create quote counter")
	}
	quoteTotal, err := meter.Float64Histogram("kart.quote.total",
		metric.WithDescription("Discounted cart totals"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create quote total histogram")
	}

	return &Handler{
		products:   products,
		quotes:     quotes,
		maxBody:    cfg.MaxBodyBytes,
		tracer:     cfg.TracerProvider.Tracer(instrumentationName),
		quoteCount: quoteCount,
		quoteTotal: quoteTotal,
	}, nil
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/product", h.ListProducts)
	mux.HandleFunc("GET /api/product/{code}", h.GetProduct)
	mux.HandleFunc("POST /api/quote", h.Quote)
	mux.HandleFunc("POST /api/quotes", h.QuoteBatch)
}

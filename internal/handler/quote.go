package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/quote"
)

// Quote prices a single cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Quote")
	defer span.End()

	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	req, err := decodeQuoteRequest(body)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	span.SetAttributes(attribute.Int("kart.lines", len(req.Items)))

	q, err := h.quotes.Quote(ctx, req)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	h.observe(ctx, q)
	span.SetAttributes(attribute.String("kart.quote_id", q.ID))

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeQuote(e, q)
	})
}

// QuoteBatch prices several independent carts concurrently.
func (h *Handler) QuoteBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QuoteBatch")
	defer span.End()

	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	reqs, err := decodeBatchRequest(body)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	span.SetAttributes(attribute.Int("kart.carts", len(reqs)))

	quotes, err := h.quotes.QuoteBatch(ctx, reqs)
	if err != nil {
		h.fail(ctx, w, span, err)
		return
	}
	for _, q := range quotes {
		h.observe(ctx, q)
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("quotes", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, q := range quotes {
						encodeQuote(e, q)
					}
				})
			})
		})
	})
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
}

func (h *Handler) observe(ctx context.Context, q *quote.Quote) {
	h.quoteCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "priced")))
	h.quoteTotal.Record(ctx, q.Total.InexactFloat64())
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, err error) {
	status, message := mapError(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, message)

	outcome := "rejected"
	if status >= http.StatusInternalServerError {
		outcome = "failed"
		zctx.From(ctx).Error("Quote failed", zap.Error(err))
	} else {
		zctx.From(ctx).Debug("Quote rejected", zap.Int("status", status), zap.Error(err))
	}
	h.quoteCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	writeErrorBody(w, status, message)
}

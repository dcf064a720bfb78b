package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/quote"
)

// statusClientClosedRequest is the nginx convention for a request the
// client abandoned before the response.
const statusClientClosedRequest = 499

// mapError converts domain errors to an HTTP status and client message.
// Anything unrecognized is a 500 with a generic message.
func mapError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "request body too large"
	}

	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "request timed out"
	}

	if errors.Is(err, pricing.ErrInvalidType) {
		return http.StatusBadRequest, err.Error()
	}

	var (
		pnfErr   *quote.ProductNotFoundError
		iqErr    *quote.InvalidQuantityError
		tmErr    *quote.TooManyUnitsError
		batchErr *quote.BatchTooLargeError
	)
	switch {
	case errors.As(err, &pnfErr), errors.As(err, &iqErr), errors.As(err, &tmErr), errors.As(err, &batchErr):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, pricing.ErrOutOfRange):
		return http.StatusUnprocessableEntity, err.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}

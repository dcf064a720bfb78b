package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/domain/quote"
)

func typeError(msg string) error {
	return errors.Wrap(pricing.ErrInvalidType, msg)
}

// decodeError classifies malformed JSON as a type error so it maps to 400.
func decodeError(err error) error {
	if err == nil || errors.Is(err, pricing.ErrInvalidType) {
		return err
	}
	return errors.Wrapf(pricing.ErrInvalidType, "invalid json: %v", err)
}

// validBody rejects anything but exactly one JSON value.
func validBody(body []byte) error {
	if err := jx.DecodeBytes(body).Validate(); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeQuoteRequest(body []byte) (quote.Request, error) {
	if err := validBody(body); err != nil {
		return quote.Request{}, err
	}
	req, err := decodeCart(jx.DecodeBytes(body))
	return req, decodeError(err)
}

func decodeBatchRequest(body []byte) ([]quote.Request, error) {
	if err := validBody(body); err != nil {
		return nil, err
	}
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return nil, typeError("request body must be a JSON object")
	}
	var (
		reqs     []quote.Request
		hasCarts bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "carts" {
			return d.Skip()
		}
		hasCarts = true
		if d.Next() != jx.Array {
			return typeError("carts must be an array")
		}
		return d.Arr(func(d *jx.Decoder) error {
			req, err := decodeCart(d)
			if err != nil {
				return errors.Wrapf(err, "cart #%d", len(reqs))
			}
			reqs = append(reqs, req)
			return nil
		})
	})
	if err != nil {
		return nil, decodeError(err)
	}
	if !hasCarts {
		return nil, typeError("carts is required")
	}
	return reqs, nil
}

// decodeCart reads {"items":[...],"promoCode":"..."}. An absent promoCode
// means none; an explicit null is rejected.
func decodeCart(d *jx.Decoder) (quote.Request, error) {
	var req quote.Request
	if d.Next() != jx.Object {
		return req, typeError("cart must be a JSON object")
	}
	hasItems := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			hasItems = true
			if d.Next() != jx.Array {
				return typeError("items must be an array")
			}
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "promoCode":
			if d.Next() != jx.String {
				return typeError("promoCode must be a string")
			}
			code, err := d.Str()
			if err != nil {
				return err
			}
			req.PromoCode = &code
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return req, err
	}
	if !hasItems {
		return req, typeError("items is required")
	}
	return req, nil
}

func decodeItem(d *jx.Decoder) (quote.Item, error) {
	var (
		item        quote.Item
		hasID       bool
		hasQuantity bool
	)
	if d.Next() != jx.Object {
		return item, typeError("item must be a JSON object")
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			if d.Next() != jx.String {
				return typeError("productId must be a string")
			}
			id, err := d.Str()
			if err != nil {
				return err
			}
			item.ProductCode, hasID = id, true
			return nil
		case "quantity":
			if d.Next() != jx.Number {
				return typeError("quantity must be an integer")
			}
			n, err := d.Int()
			if err != nil {
				return typeError("quantity must be an integer")
			}
			item.Quantity, hasQuantity = n, true
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return item, err
	}
	if !hasID {
		return item, typeError("productId is required")
	}
	if !hasQuantity {
		return item, typeError("quantity is required")
	}
	return item, nil
}

// amount writes a decimal as a JSON number with two decimal places.
func amount(v decimal.Decimal) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Raw([]byte(v.StringFixed(2)))
	}
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.Code) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", amount(p.Price))
	})
}

func encodeQuote(e *jx.Encoder, q *quote.Quote) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(q.ID) })
		e.Field("subtotal", amount(q.Subtotal))
		e.Field("discounts", amount(q.Discounts))
		e.Field("total", amount(q.Total))
		e.Field("promoCode", func(e *jx.Encoder) { e.Str(q.PromoCode) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range q.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.Product.Code) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Product.Name) })
						e.Field("unitPrice", amount(it.Product.Price))
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encode(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeErrorBody(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListProducts returns the whole catalog ordered by product code.
func (h *Handler) ListProducts(w http.ResponseWriter, _ *http.Request) {
	products := h.products.List()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				encodeProduct(e, p)
			}
		})
	})
}

// GetProduct returns a single product by code.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	p, ok := h.products.Lookup(code)
	if !ok {
		writeErrorBody(w, http.StatusNotFound, "product "+code+" not found")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

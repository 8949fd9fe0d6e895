package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// errorResponse is the uniform error body. Errors carries the accumulated
// per-item messages of a failed cart validation and is omitted otherwise.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, errorResponse{Code: code, Message: message})
}

// respondOrderError maps domain errors to the HTTP taxonomy: validation
// problems are 400 with the full error list, conflicts (stale total,
// race-lost stock, double cancel) are 409, opaque not-found is 404, and
// everything else is a logged 500.
func respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Order validation failed",
			Errors:  vErr.Errors,
		})
		return
	}

	var (
		tmErr *order.TotalMismatchError
		isErr *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tmErr), errors.As(err, &isErr),
		errors.Is(err, order.ErrAlreadyCancelled):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, order.ErrNotFound.Error())
	default:
		zctx.From(r.Context()).Error("Order request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondProductError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, product.ErrNotFound) {
		respondError(w, http.StatusNotFound, product.ErrNotFound.Error())
		return
	}
	zctx.From(r.Context()).Error("Product request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

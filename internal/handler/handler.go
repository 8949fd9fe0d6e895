// Package handler exposes the storefront HTTP API: the public catalog, the
// order flow, admin product management, and payment-link creation.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/payments"
)

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	products  product.Repository
	validator *order.Validator
	orders    *order.Service
	payments  *payments.Client
	tokens    *auth.TokenParser
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	validator *order.Validator,
	orders *order.Service,
	pay *payments.Client,
	tokens *auth.TokenParser,
) *Handler {
	return &Handler{
		products:  products,
		validator: validator,
		orders:    orders,
		payments:  pay,
		tokens:    tokens,
	}
}

// Routes builds the API router.
//
// The catalog listing, product detail, and cart validation are public; the
// order flow requires a signed bearer token; product management is admin
// only. Ownership checks on individual orders happen in the domain layer,
// where foreign orders are indistinguishable from missing ones.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate, h.requireAdmin)
			r.Get("/archived", h.listArchivedProducts)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Patch("/{id}/stock", h.updateProductStock)
			r.Post("/{id}/archive", h.archiveProduct)
			r.Post("/{id}/restore", h.restoreProduct)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/validate", h.validateOrder)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/", h.placeOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Patch("/{id}/status", h.updateOrderStatus)
			r.Post("/{id}/cancel", h.cancelOrder)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Post("/payments/link", h.createPaymentLink)
	})

	return r
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

type productResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	IsArchived  bool      `json:"isArchived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Category:    p.Category,
		Stock:       p.Stock,
		IsArchived:  p.IsArchived,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	return out
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) listArchivedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListArchived(r.Context())
	if err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg, ok := validProductRequest(req); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	p := &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Category:    req.Category,
		Stock:       req.Stock,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg, ok := validProductRequest(req); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondProductError(w, r, err)
		return
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Price = decimal.NewFromFloat(req.Price)
	p.Category = req.Category
	p.Stock = req.Stock

	if err := h.products.Update(r.Context(), p); err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) updateProductStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Stock int `json:"stock"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "stock cannot be negative")
		return
	}

	if err := h.products.UpdateStock(r.Context(), id, req.Stock); err != nil {
		respondProductError(w, r, err)
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) archiveProduct(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *Handler) restoreProduct(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var err error
	if archived {
		err = h.products.Archive(r.Context(), id)
	} else {
		err = h.products.Restore(r.Context(), id)
	}
	if err != nil {
		respondProductError(w, r, err)
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondProductError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func validProductRequest(req productRequest) (string, bool) {
	if req.Name == "" {
		return "product name is required", false
	}
	if req.Price <= 0 {
		return "product price must be greater than 0", false
	}
	if req.Stock < 0 {
		return "product stock cannot be negative", false
	}
	return "", true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

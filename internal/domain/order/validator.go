package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// priceTolerance is the maximum accepted drift, in currency units, between a
// client-submitted amount and the backend-authoritative one.
var priceTolerance = decimal.RequireFromString("0.01")

// Validator checks requested line items against the catalog. It is read-only
// and accumulates every problem it finds instead of stopping at the first.
type Validator struct {
	products product.Repository
}

// NewValidator creates a Validator backed by the given catalog repository.
func NewValidator(products product.Repository) *Validator {
	return &Validator{products: products}
}

// Validate verifies each requested item against the catalog.
//
// An empty cart fails fast with ErrEmptyItems. Every other finding is
// collected into a single *ValidationError: a missing product, exhausted or
// insufficient stock, and a price drifted beyond the 0.01 tolerance. The
// price check runs independently of the stock checks, so one item can
// contribute several entries.
func (v *Validator) Validate(ctx context.Context, items []LineItem) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}

	var found []string
	for _, item := range items {
		p, err := v.products.GetByName(ctx, item.Name)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				found = append(found, fmt.Sprintf("Product %q not found", item.Name))
				continue
			}
			return errors.Wrapf(err, "look up product %q", item.Name)
		}

		switch {
		case p.Stock <= 0:
			found = append(found, fmt.Sprintf("Product %q is out of stock", item.Name))
		case item.Qty > p.Stock:
			found = append(found, (&InsufficientStockError{
				Name:      item.Name,
				Requested: item.Qty,
				Available: p.Stock,
			}).Error())
		}

		if p.Price.Sub(item.Price).Abs().GreaterThan(priceTolerance) {
			found = append(found, fmt.Sprintf("Price mismatch for %q. Current price: ₱%s",
				item.Name, p.Price.StringFixed(2)))
		}
	}

	if len(found) > 0 {
		return &ValidationError{Errors: found}
	}
	return nil
}

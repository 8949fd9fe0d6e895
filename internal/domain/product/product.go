package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Archived products
// are soft-deleted: excluded from the public listing but kept in storage and
// still reachable by ID.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for the product catalog.
//
// GetByName performs an exact-match lookup. Order validation and stock
// restoration resolve products by name because order line items carry a
// name snapshot, not a foreign key.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListArchived(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	UpdateStock(ctx context.Context, id int64, stock int) error
	Archive(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
}

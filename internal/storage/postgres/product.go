package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, category, stock, is_archived, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE is_archived = FALSE ORDER BY id`

	listArchivedProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE is_archived = TRUE ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1`

	getProductByNameSQL = `SELECT ` + productColumns + `
		FROM products WHERE name = $1 ORDER BY id LIMIT 1`

	createProductSQL = `INSERT INTO products (name, description, price, category, stock, is_archived)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at, updated_at`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, stock = $6, updated_at = now()
		WHERE id = $1`

	updateProductStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`

	setProductArchivedSQL = `UPDATE products SET is_archived = $2, updated_at = now() WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all non-archived products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListArchived returns all archived products ordered by ID.
func (r *ProductRepository) ListArchived(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listArchivedProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing archived products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier, archived or not.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByName returns the product with the exact given name. Names are unique
// by convention only, so the lowest ID wins if duplicates exist.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", name, err)
	}

	p, err := pgx.CollectOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", name, err)
	}
	return &p, nil
}

// Create inserts a new product and fills the generated ID and timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Description, p.Price, p.Category, p.Stock,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update overwrites the mutable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	ct, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Stock,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// UpdateStock sets the product's stock to the given absolute value.
func (r *ProductRepository) UpdateStock(ctx context.Context, id int64, stock int) error {
	ct, err := r.pool.Exec(ctx, updateProductStockSQL, id, stock)
	if err != nil {
		return fmt.Errorf("updating stock of product %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Archive soft-deletes the product: it disappears from the public listing but
// keeps its row.
func (r *ProductRepository) Archive(ctx context.Context, id int64) error {
	return r.setArchived(ctx, id, true)
}

// Restore brings an archived product back into the public listing.
func (r *ProductRepository) Restore(ctx context.Context, id int64) error {
	return r.setArchived(ctx, id, false)
}

func (r *ProductRepository) setArchived(ctx context.Context, id int64, archived bool) error {
	ct, err := r.pool.Exec(ctx, setProductArchivedSQL, id, archived)
	if err != nil {
		return fmt.Errorf("setting archived=%t on product %d: %w", archived, id, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.Stock, &p.IsArchived, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

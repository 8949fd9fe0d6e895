package postgres

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_id, items, shipping_info, total, payment_method, status, created_at, updated_at`

	lockProductStockSQL = `SELECT name, stock FROM products WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (order_number, user_id, items, shipping_info, total, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	patchOrderNumberSQL = `UPDATE orders SET order_number = $2 WHERE id = $1`

	getOrderForUserSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE id = $1 AND ($3 OR user_id = $2)`

	listOrdersForUserSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	cancelOrderSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status <> $2`

	resolveProductIDSQL = `SELECT id FROM products WHERE name = $1 ORDER BY id LIMIT 1`

	restoreStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. It owns the only
// two multi-statement transactions in the system: placement and cancellation.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Place runs the atomic placement transaction:
//
//  1. Lock every reserved product row with SELECT ... FOR UPDATE. Locks are
//     acquired in ascending product-ID order regardless of how the client
//     listed the items, so two orders touching the same products can never
//     deadlock each other.
//  2. Re-check stock under the lock. Stock read during validation may have
//     been consumed in the meantime; if it no longer covers the reservation
//     the whole transaction rolls back with an InsufficientStockError.
//  3. Decrement stock, floored at zero.
//  4. Insert the order with its provisional number, then patch the number to
//     append the first reservation's product ID.
//
// Any error rolls back every decrement; a partial reservation is never
// visible outside the transaction.
func (s *OrderStore) Place(ctx context.Context, o *order.Order, reservations []order.Reservation) error {
	if len(reservations) == 0 {
		return errors.New("placement requires at least one reservation")
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	shippingJSON, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("marshaling shipping info: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning placement transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	locked := slices.Clone(reservations)
	slices.SortFunc(locked, func(a, b order.Reservation) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	for _, res := range locked {
		var (
			name  string
			stock int
		)
		if err := tx.QueryRow(ctx, lockProductStockSQL, res.ProductID).Scan(&name, &stock); err != nil {
			return fmt.Errorf("locking product %d: %w", res.ProductID, err)
		}
		if stock < res.Qty {
			return &order.InsufficientStockError{
				Name:      name,
				Requested: res.Qty,
				Available: stock,
			}
		}

		newStock := max(0, stock-res.Qty)
		if _, err := tx.Exec(ctx, decrementStockSQL, res.ProductID, newStock); err != nil {
			return fmt.Errorf("decrementing stock of product %d: %w", res.ProductID, err)
		}
	}

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.OrderNumber, o.UserID, itemsJSON, shippingJSON, o.Total, o.PaymentMethod, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.OrderNumber, err)
	}

	// Final number = provisional number + first line item's product ID, in
	// client-submitted order, not lock order.
	final := o.OrderNumber + "-" + strconv.FormatInt(reservations[0].ProductID, 10)
	if _, err := tx.Exec(ctx, patchOrderNumberSQL, o.ID, final); err != nil {
		return fmt.Errorf("patching number of order %d: %w", o.ID, err)
	}
	o.OrderNumber = final

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %d: %w", o.ID, err)
	}
	return nil
}

// GetForUser returns the order when admin is set or it belongs to userID.
// Both a missing row and a foreign row surface as order.ErrNotFound.
func (s *OrderStore) GetForUser(ctx context.Context, id, userID int64, admin bool) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderForUserSQL, id, userID, admin)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderStore) ListForUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersForUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus overwrites the order's status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	ct, err := s.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating status of order %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Cancel marks the order cancelled and restores each line item's quantity
// additively to the product's current stock, in one transaction.
//
// The status flip runs first and is guarded (`status <> 'Cancelled'`): it
// takes the exclusive lock on the order row, so of two concurrent cancels one
// blocks until the other commits, then sees zero rows affected and returns
// ErrAlreadyCancelled without touching stock. The additive stock UPDATE takes
// the same row locks as placement, so concurrent cancellations of orders
// sharing a product cannot lose updates. Rows are updated in ascending
// product-ID order to stay deadlock-free with the placement lock order.
// Items whose product no longer exists are skipped without failing the
// cancellation.
func (s *OrderStore) Cancel(ctx context.Context, o *order.Order) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning cancel transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	ct, err := tx.Exec(ctx, cancelOrderSQL, o.ID, order.StatusCancelled)
	if err != nil {
		return fmt.Errorf("cancelling order %d: %w", o.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrAlreadyCancelled
	}

	type restore struct {
		productID int64
		qty       int
	}
	restores := make([]restore, 0, len(o.Items))
	for _, item := range o.Items {
		var productID int64
		err := tx.QueryRow(ctx, resolveProductIDSQL, item.Name).Scan(&productID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // product deleted since the order was placed
		}
		if err != nil {
			return fmt.Errorf("resolving product %q: %w", item.Name, err)
		}
		restores = append(restores, restore{productID: productID, qty: item.Qty})
	}

	slices.SortFunc(restores, func(a, b restore) int {
		return cmp.Compare(a.productID, b.productID)
	})

	for _, r := range restores {
		if _, err := tx.Exec(ctx, restoreStockSQL, r.productID, r.qty); err != nil {
			return fmt.Errorf("restoring stock of product %d: %w", r.productID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cancel of order %d: %w", o.ID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		shippingJSON []byte
		status       string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &itemsJSON, &shippingJSON,
		&o.Total, &o.PaymentMethod, &status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %d: %w", o.ID, err)
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
		return o, fmt.Errorf("unmarshaling shipping info of order %d: %w", o.ID, err)
	}
	o.Status = order.Status(status)
	return o, nil
}

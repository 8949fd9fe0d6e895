package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a priced snapshot of one product within an order. The price is
// always the catalog price at order-creation time, never the client-submitted
// one.
type LineItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

// ShippingInfo is a free-form address snapshot taken at checkout.
type ShippingInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
}

// Order represents a placed customer order.
//
// OrderNumber is the human-readable identifier in the form
// YYYYMMDD-NNNN-<firstProductID>. It is persisted in two steps: first with
// only the date and random suffix, then patched inside the placement
// transaction to append the first line item's product ID.
type Order struct {
	ID            int64
	OrderNumber   string
	UserID        int64
	Items         []LineItem
	ShippingInfo  ShippingInfo
	Total         decimal.Decimal
	PaymentMethod string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reservation identifies a product row to lock and the quantity to take from
// its stock during placement. Reservations are listed in line-item order; the
// store is responsible for acquiring locks in a deadlock-free order.
type Reservation struct {
	ProductID int64
	Qty       int
}

// Store defines persistence operations for orders.
//
// Place and Cancel are the only transactional operations in the system: both
// must take pessimistic row locks on the affected product rows and roll back
// completely on failure, so a partial stock mutation is never visible.
type Store interface {
	// Place atomically re-checks stock under row locks, decrements it,
	// persists the order with its provisional number, and patches the number
	// with the first reservation's product ID. On success it fills o.ID,
	// o.OrderNumber, o.CreatedAt, and o.UpdatedAt.
	Place(ctx context.Context, o *Order, reservations []Reservation) error

	// GetForUser returns the order only when admin is set or the order
	// belongs to userID; otherwise it returns ErrNotFound so that callers
	// cannot distinguish foreign orders from missing ones.
	GetForUser(ctx context.Context, id, userID int64, admin bool) (*Order, error)

	ListForUser(ctx context.Context, userID int64) ([]Order, error)

	UpdateStatus(ctx context.Context, id int64, status Status) error

	// Cancel restores each line item's quantity to the matching product's
	// current stock under row locks and marks the order cancelled, all in one
	// transaction. Items whose product no longer exists are skipped. Returns
	// ErrAlreadyCancelled when the order was already cancelled, including by
	// a concurrent cancel that committed after the caller's read.
	Cancel(ctx context.Context, o *Order) error
}

// Events receives order lifecycle notifications. Implementations must not
// block the request path; delivery is best effort.
type Events interface {
	OrderPlaced(ctx context.Context, o *Order)
	OrderStatusChanged(ctx context.Context, id int64, status Status)
	OrderCancelled(ctx context.Context, o *Order)
}

// NopEvents discards all lifecycle notifications.
type NopEvents struct{}

func (NopEvents) OrderPlaced(context.Context, *Order)               {}
func (NopEvents) OrderStatusChanged(context.Context, int64, Status) {}
func (NopEvents) OrderCancelled(context.Context, *Order)            {}

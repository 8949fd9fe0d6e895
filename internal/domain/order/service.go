package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// PlaceRequest holds the client-submitted input for placing an order. Prices
// and the total are treated as claims to verify, never as truth.
type PlaceRequest struct {
	Items         []LineItem
	ShippingInfo  ShippingInfo
	Total         decimal.Decimal
	PaymentMethod string
}

// Placed is the summary returned to the client after a successful placement.
type Placed struct {
	ID          int64
	OrderNumber string
	Status      Status
	Total       decimal.Decimal
	CreatedAt   time.Time
}

// Service encapsulates order placement and lifecycle business logic.
type Service struct {
	products  product.Repository
	validator *Validator
	store     Store
	events    Events
}

// NewService creates an order Service with the required domain dependencies.
// Pass NopEvents when no event publisher is configured.
func NewService(products product.Repository, validator *Validator, store Store, events Events) *Service {
	return &Service{
		products:  products,
		validator: validator,
		store:     store,
		events:    events,
	}
}

// Place validates the cart, rebuilds it with authoritative catalog prices,
// reconciles the submitted total, and runs the atomic placement transaction.
//
// No mutation happens before the transaction, and any failure inside it rolls
// back every stock decrement. The store may still report an
// InsufficientStockError here: stock read during validation can be consumed
// by a concurrent order before the row locks are acquired.
func (s *Service) Place(ctx context.Context, userID int64, req PlaceRequest) (*Placed, error) {
	if err := s.validator.Validate(ctx, req.Items); err != nil {
		return nil, err
	}

	// Rebuild the items with backend prices; client-submitted prices are
	// ignored from this point on.
	items := make([]LineItem, 0, len(req.Items))
	reservations := make([]Reservation, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		p, err := s.products.GetByName(ctx, item.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "look up product %q", item.Name)
		}
		items = append(items, LineItem{
			Name:  item.Name,
			Price: p.Price,
			Qty:   item.Qty,
		})
		reservations = append(reservations, Reservation{
			ProductID: p.ID,
			Qty:       item.Qty,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	total = total.Round(2)

	// The client recomputes its total at checkout; a drift beyond the
	// tolerance means tampering or a price change mid-checkout.
	if total.Sub(req.Total).Abs().GreaterThan(priceTolerance) {
		return nil, &TotalMismatchError{Expected: total, Received: req.Total}
	}

	o := &Order{
		OrderNumber:   provisionalOrderNumber(time.Now()),
		UserID:        userID,
		Items:         items,
		ShippingInfo:  req.ShippingInfo,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusPendingPayment,
	}
	if err := s.store.Place(ctx, o, reservations); err != nil {
		return nil, err
	}

	s.events.OrderPlaced(ctx, o)

	return &Placed{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
	}, nil
}

// provisionalOrderNumber builds the date-random prefix of an order number.
// The store appends the first line item's product ID inside the placement
// transaction.
func provisionalOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%04d", now.Format("20060102"), rand.IntN(10000))
}

// Get returns the order when the requester is an admin or its owner.
// Ownership failures are reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, id, userID int64, admin bool) (*Order, error) {
	return s.store.GetForUser(ctx, id, userID, admin)
}

// ListForUser returns the requester's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Order, error) {
	return s.store.ListForUser(ctx, userID)
}

// UpdateStatus overwrites the order's status after the ownership check.
// Any member of the status set is accepted as a target state.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, userID int64, admin bool) (*Order, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	o, err := s.store.GetForUser(ctx, id, userID, admin)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, o.ID, status); err != nil {
		return nil, errors.Wrapf(err, "update status of order %d", o.ID)
	}
	o.Status = status

	s.events.OrderStatusChanged(ctx, o.ID, status)
	return o, nil
}

// Cancel marks the order cancelled and restores the reserved quantities to
// each product's current stock. Restoring twice is prevented by rejecting
// orders that are already cancelled.
func (s *Service) Cancel(ctx context.Context, id, userID int64, admin bool) (*Order, error) {
	o, err := s.store.GetForUser(ctx, id, userID, admin)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	if err := s.store.Cancel(ctx, o); err != nil {
		return nil, errors.Wrapf(err, "cancel order %d", o.ID)
	}
	o.Status = StatusCancelled

	s.events.OrderCancelled(ctx, o)
	return o, nil
}

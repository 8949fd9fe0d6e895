package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for the order lifecycle.
var (
	// ErrEmptyItems is the only fatal validation error: it short-circuits
	// instead of being accumulated into a ValidationError.
	ErrEmptyItems = errors.New("order must contain at least one item")

	// ErrNotFound covers both a missing order and an order owned by another
	// user. The two cases are deliberately indistinguishable so that order
	// IDs cannot be probed for existence.
	ErrNotFound = errors.New("order not found")

	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// ValidationError carries every per-item problem found in a submitted cart.
// Callers must surface the full list at once, not just the first entry.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "order validation failed: " + strings.Join(e.Errors, "; ")
}

// TotalMismatchError indicates the client-submitted total does not reconcile
// with the backend-recomputed total within the 0.01 tolerance.
type TotalMismatchError struct {
	Expected decimal.Decimal
	Received decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("Total amount mismatch. Expected: ₱%s, Received: ₱%s",
		e.Expected.StringFixed(2), e.Received.StringFixed(2))
}

// InsufficientStockError indicates a product's stock cannot cover the
// requested quantity. It is produced both by pre-validation and by the
// under-lock re-check inside the placement transaction.
type InsufficientStockError struct {
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %q. Requested: %d, Available: %d",
		e.Name, e.Requested, e.Available)
}

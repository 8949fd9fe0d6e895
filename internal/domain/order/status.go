package order

import "github.com/go-faster/errors"

// Status is the closed set of order states. The literal values match what the
// storefront displays, so they are stored and transported as-is.
type Status string

const (
	StatusPendingPayment Status = "Pending Payment"
	StatusPaid           Status = "Paid"
	StatusPaymentFailed  Status = "Payment Failed"
	StatusCompleted      Status = "Completed"
	StatusCancelled      Status = "Cancelled"
)

// ErrInvalidStatus is returned when a string does not name a known status.
var ErrInvalidStatus = errors.New("invalid order status")

// ParseStatus validates membership in the closed status set.
//
// Transitions between statuses are deliberately not restricted: admins move
// orders freely between payment states, and cancellation is guarded
// separately by Service.Cancel.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPendingPayment, StatusPaid, StatusPaymentFailed, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
}

package service

import (
	"errors"
	"strings"

	"ridedispatch/internal/repository"
)

var (
	// ErrNotFound is returned when the ride or driver does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRideNotAvailable is returned when the ride exists but is not in the
	// state the operation requires, or is not assigned to the caller.
	ErrRideNotAvailable = errors.New("ride not available")

	// ErrDriverUnavailable is returned when the driver is inactive or cannot take the ride.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrInvalidStatus is returned for a status outside the enum or a transition
	// absent from the table.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrPaymentProcessingFailed is returned when settlement cannot complete.
	ErrPaymentProcessingFailed = errors.New("payment processing failed")

	// ErrInternal is returned for unexpected failures.
	ErrInternal = errors.New("internal error")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidMessage is returned when a ride message is empty or has no sender.
	ErrInvalidMessage = errors.New("invalid message")
)

var kinds = []error{
	ErrNotFound,
	ErrRideNotAvailable,
	ErrDriverUnavailable,
	ErrInvalidStatus,
	ErrPaymentProcessingFailed,
	ErrInvalidRideID,
	ErrInvalidDriverID,
	ErrInvalidMessage,
	ErrInternal,
}

// DispatchError carries the kind of a failed operation together with the
// entities it concerned. It unwraps to both Kind and the underlying cause.
type DispatchError struct {
	Op        string
	Kind      error
	RideID    string
	DriverID  string
	PaymentID string
	Err       error
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.RideID != "" {
		b.WriteString(" ride=" + e.RideID)
	}
	if e.DriverID != "" {
		b.WriteString(" driver=" + e.DriverID)
	}
	if e.PaymentID != "" {
		b.WriteString(" payment=" + e.PaymentID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DispatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the sentinel kind of err. Unclassified errors are ErrInternal.
func KindOf(err error) error {
	if err == nil {
		return nil
	}

	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}

	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}

	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}

	return ErrInternal
}

// kindLabel returns a metric label for a kind.
func kindLabel(kind error) string {
	switch kind {
	case ErrNotFound:
		return "not_found"
	case ErrRideNotAvailable:
		return "ride_not_available"
	case ErrDriverUnavailable:
		return "driver_unavailable"
	case ErrInvalidStatus:
		return "invalid_status"
	case ErrPaymentProcessingFailed:
		return "payment_processing_failed"
	case ErrInvalidRideID, ErrInvalidDriverID, ErrInvalidMessage:
		return "invalid_argument"
	default:
		return "internal"
	}
}

func newError(op string, kind error, rideID, driverID string) *DispatchError {
	return &DispatchError{Op: op, Kind: kind, RideID: rideID, DriverID: driverID}
}

// classify turns any error into a *DispatchError for op. Errors that already
// are one keep their kind and get missing identifiers filled in.
func classify(op string, err error, rideID, driverID string) error {
	if err == nil {
		return nil
	}

	var de *DispatchError
	if errors.As(err, &de) {
		if de.Op == "" {
			de.Op = op
		}
		if de.RideID == "" {
			de.RideID = rideID
		}
		if de.DriverID == "" {
			de.DriverID = driverID
		}
		return de
	}

	return &DispatchError{Op: op, Kind: KindOf(err), RideID: rideID, DriverID: driverID, Err: err}
}

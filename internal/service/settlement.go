package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

var errPaymentMissing = errors.New("no payment record for ride")

// SettlementOutcome is the result of settling a ride's payment.
type SettlementOutcome struct {
	Payment       *domain.Payment
	RideStatus    domain.RideStatus // status the ride must be persisted in
	GatewayCalled bool
	Result        string // metric label: authorized, captured or already_completed
}

// SettlementCoordinator moves a ride's payment forward when the ride is
// completed. It runs inside the caller's transaction.
type SettlementCoordinator struct {
	gateway PaymentGateway
	now     func() time.Time
}

// NewSettlementCoordinator creates a new SettlementCoordinator.
func NewSettlementCoordinator(gateway PaymentGateway) *SettlementCoordinator {
	return &SettlementCoordinator{gateway: gateway, now: time.Now}
}

// Settle locks the payment of ride and advances it one step:
//
//	pending    -> authorize with the gateway; payment authorized, ride PAYMENT_CONFIRMED
//	authorized -> record the capture;          payment completed,  ride COMPLETED
//	completed  -> nothing to do;                                   ride COMPLETED
//
// Any failure is returned as ErrPaymentProcessingFailed and must abort the transaction.
func (c *SettlementCoordinator) Settle(ctx context.Context, payments repository.PaymentRepository, ride *domain.Ride) (*SettlementOutcome, error) {
	const op = "Settle"

	payment, err := payments.GetByRideIDForUpdate(ctx, ride.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e := newError(op, ErrPaymentProcessingFailed, ride.ID, ride.DriverID)
			e.Err = errPaymentMissing
			return nil, e
		}
		return nil, err
	}

	switch payment.Status {
	case domain.PaymentStatusPending:
		res, err := c.gateway.Authorize(ctx, AuthorizeRequest{
			RideID:     ride.ID,
			CustomerID: payment.CustomerID,
			Amount:     payment.Amount,
			Method:     payment.Method,
			Details:    payment.Details,
		})
		if err != nil {
			return nil, c.fail(op, ride, payment, fmt.Errorf("authorize: %w", err))
		}

		payment.Status = domain.PaymentStatusAuthorized
		payment.GatewayPaymentID = res.GatewayPaymentID
		payment.UpdatedAt = c.now()
		if err := payments.Update(ctx, payment); err != nil {
			return nil, err
		}

		return &SettlementOutcome{
			Payment:       payment,
			RideStatus:    domain.RideStatusPaymentConfirmed,
			GatewayCalled: true,
			Result:        "authorized",
		}, nil

	case domain.PaymentStatusAuthorized:
		payment.Status = domain.PaymentStatusCompleted
		payment.UpdatedAt = c.now()
		if err := payments.Update(ctx, payment); err != nil {
			return nil, err
		}

		return &SettlementOutcome{Payment: payment, RideStatus: domain.RideStatusCompleted, Result: "captured"}, nil

	case domain.PaymentStatusCompleted:
		return &SettlementOutcome{Payment: payment, RideStatus: domain.RideStatusCompleted, Result: "already_completed"}, nil

	default:
		return nil, c.fail(op, ride, payment, fmt.Errorf("unknown payment status %q", payment.Status))
	}
}

func (c *SettlementCoordinator) fail(op string, ride *domain.Ride, payment *domain.Payment, err error) error {
	e := newError(op, ErrPaymentProcessingFailed, ride.ID, ride.DriverID)
	e.PaymentID = payment.ID
	e.Err = err
	return e
}

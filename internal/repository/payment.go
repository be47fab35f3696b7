package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// GetByRideID retrieves the payment of a ride.
	GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error)

	// GetByRideIDForUpdate retrieves the payment of a ride and locks its row.
	GetByRideIDForUpdate(ctx context.Context, rideID string) (*domain.Payment, error)

	// Update persists status and gateway reference of a payment.
	Update(ctx context.Context, payment *domain.Payment) error
}

package repository

import (
	"context"
	"time"

	"ridedispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// Update persists status, driver link, decline details and cancellation time.
	Update(ctx context.Context, ride *domain.Ride) error

	// ListByDriver retrieves the rides linked to a driver in any of the given statuses.
	ListByDriver(ctx context.Context, driverID string, statuses []domain.RideStatus) ([]*domain.Ride, error)

	// ListRequestedBefore returns up to limit IDs of REQUESTED rides created before cutoff.
	ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

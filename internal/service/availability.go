package service

import (
	"context"

	"go.uber.org/zap"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// AvailabilityCoordinator is the only writer of driver availability. Its
// writes go through the transaction-scoped repository handed in by the caller.
type AvailabilityCoordinator struct {
	cache  redis.AvailabilityCacheInterface
	logger *zap.Logger
}

// NewAvailabilityCoordinator creates a new AvailabilityCoordinator. cache may be nil.
func NewAvailabilityCoordinator(cache redis.AvailabilityCacheInterface, logger *zap.Logger) *AvailabilityCoordinator {
	return &AvailabilityCoordinator{cache: cache, logger: logger}
}

// Reserve marks the driver busy on entry to ASSIGNED.
func (a *AvailabilityCoordinator) Reserve(ctx context.Context, drivers repository.DriverRepository, driverID string) error {
	return drivers.UpdateAvailability(ctx, driverID, domain.AvailabilityBusy)
}

// Release marks the driver available when a ride leaves ASSIGNED for good.
// Rides leaving PAYMENT_CONFIRMED released their driver already, and the
// driver may be on a newer ride, so nothing is written. It reports whether
// a write happened.
func (a *AvailabilityCoordinator) Release(ctx context.Context, drivers repository.DriverRepository, driverID string, previous domain.RideStatus) (bool, error) {
	if previous != domain.RideStatusAssigned {
		return false, nil
	}
	if err := drivers.UpdateAvailability(ctx, driverID, domain.AvailabilityAvailable); err != nil {
		return false, err
	}
	return true, nil
}

// Mirror copies a committed availability change into the available-driver set.
// Failures are logged; Postgres stays the source of truth.
func (a *AvailabilityCoordinator) Mirror(ctx context.Context, driverID string, availability domain.AvailabilityStatus) {
	if a.cache == nil {
		return
	}

	var err error
	if availability == domain.AvailabilityAvailable {
		err = a.cache.AddAvailableDriver(ctx, driverID)
	} else {
		err = a.cache.RemoveAvailableDriver(ctx, driverID)
	}
	if err == nil {
		err = a.cache.InvalidateDriver(ctx, driverID)
	}
	if err != nil {
		a.logger.Warn("failed to mirror driver availability",
			zap.String("driver_id", driverID),
			zap.String("availability", string(availability)),
			zap.Error(err),
		)
	}
}

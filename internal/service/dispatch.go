package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/metrics"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// DispatchService owns the ride state machine. Every operation runs in one
// transaction that locks the ride row, then the driver row, then the payment
// row. Events are published only after the transaction commits.
type DispatchService struct {
	tx           repository.Transactor
	settlement   *SettlementCoordinator
	availability *AvailabilityCoordinator
	publisher    events.Publisher
	rideCache    redis.RideCacheInterface
	reportCache  redis.ReportCacheInterface
	logger       *zap.Logger
	now          func() time.Time
}

// NewDispatchService creates a new DispatchService. Caches may be nil.
func NewDispatchService(
	tx repository.Transactor,
	settlement *SettlementCoordinator,
	availability *AvailabilityCoordinator,
	publisher events.Publisher,
	rideCache redis.RideCacheInterface,
	reportCache redis.ReportCacheInterface,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		tx:           tx,
		settlement:   settlement,
		availability: availability,
		publisher:    publisher,
		rideCache:    rideCache,
		reportCache:  reportCache,
		logger:       logger,
		now:          time.Now,
	}
}

// UpdateRideStatusResult contains the outcome of a status update.
type UpdateRideStatusResult struct {
	Ride          *domain.Ride
	Payment       *domain.Payment // set when settlement ran
	GatewayCalled bool
}

// AcceptRide assigns a requested ride to the driver and marks the driver busy.
func (s *DispatchService) AcceptRide(ctx context.Context, driverID, rideID string) (*domain.Ride, error) {
	const op = "AcceptRide"

	if err := validateIDs(driverID, rideID); err != nil {
		return nil, s.failed(op, err, rideID, driverID)
	}

	var ride *domain.Ride
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, _, err = s.lockForDriverAction(ctx, op, repos, driverID, rideID)
		if err != nil {
			return err
		}

		ride.Status = domain.RideStatusAssigned
		ride.DriverID = driverID
		ride.UpdatedAt = s.now()
		if err := repos.Rides.Update(ctx, ride); err != nil {
			return err
		}

		return s.availability.Reserve(ctx, repos.Drivers, driverID)
	})
	if err != nil {
		return nil, s.failed(op, err, rideID, driverID)
	}

	metrics.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusRequested), string(domain.RideStatusAssigned)).Inc()
	s.logger.Info("ride accepted", zap.String("ride_id", rideID), zap.String("driver_id", driverID))

	s.availability.Mirror(ctx, driverID, domain.AvailabilityBusy)
	s.invalidateRide(ctx, rideID)
	s.publish(ctx, events.NewRideAccepted(rideID, driverID))

	return ride, nil
}

// DeclineRide cancels a requested ride on behalf of the driver. The driver's
// availability is left untouched.
func (s *DispatchService) DeclineRide(ctx context.Context, driverID, rideID, reason string) (*domain.Ride, error) {
	const op = "DeclineRide"

	if err := validateIDs(driverID, rideID); err != nil {
		return nil, s.failed(op, err, rideID, driverID)
	}

	var ride *domain.Ride
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, _, err = s.lockForDriverAction(ctx, op, repos, driverID, rideID)
		if err != nil {
			return err
		}

		now := s.now()
		ride.Status = domain.RideStatusCancelled
		ride.Decline = &domain.DeclineDetails{
			Reason:     strings.TrimSpace(reason),
			DeclinedBy: driverID,
			DeclinedAt: now,
		}
		ride.CancelledAt = now
		ride.UpdatedAt = now
		return repos.Rides.Update(ctx, ride)
	})
	if err != nil {
		return nil, s.failed(op, err, rideID, driverID)
	}

	metrics.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusRequested), string(domain.RideStatusCancelled)).Inc()
	s.logger.Info("ride declined",
		zap.String("ride_id", rideID),
		zap.String("driver_id", driverID),
		zap.String("reason", ride.Decline.Reason),
	)

	s.invalidateRide(ctx, rideID)
	s.publish(ctx, events.NewRideDeclined(rideID, driverID, *ride.Decline))

	return ride, nil
}

// lockForDriverAction locks the ride and the driver and checks the shared
// preconditions of accept and decline.
func (s *DispatchService) lockForDriverAction(ctx context.Context, op string, repos repository.Repositories, driverID, rideID string) (*domain.Ride, *domain.Driver, error) {
	ride, err := repos.Rides.GetByIDForUpdate(ctx, rideID)
	if err != nil {
		return nil, nil, err
	}

	driver, err := repos.Drivers.GetByIDForUpdate(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}

	if !driver.CanAccept() {
		return nil, nil, newError(op, ErrDriverUnavailable, rideID, driverID)
	}

	if ride.Status != domain.RideStatusRequested {
		return nil, nil, newError(op, ErrRideNotAvailable, rideID, driverID)
	}

	return ride, driver, nil
}

// UpdateRideStatus moves an assigned ride forward. A requested COMPLETED runs
// settlement first and persists the status settlement decides, which is
// PAYMENT_CONFIRMED while the payment was still pending. COMPLETED and
// CANCELLED release the driver in the same transaction.
func (s *DispatchService) UpdateRideStatus(ctx context.Context, driverID, rideID, newStatus string) (*UpdateRideStatusResult, error) {
	const op = "UpdateRideStatus"

	if err := validateIDs(driverID, rideID); err != nil {
		return nil, s.failed(op, err, rideID, driverID)
	}

	requested, ok := domain.ParseRideStatus(newStatus)
	if !ok || domain.SettlementOnly(requested) {
		return nil, s.failed(op, newError(op, ErrInvalidStatus, rideID, driverID), rideID, driverID)
	}

	var (
		result   UpdateRideStatusResult
		previous domain.RideStatus
		released bool
		outcome  *SettlementOutcome
		orphaned *domain.Payment
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}

		driver, err := repos.Drivers.GetByIDForUpdate(ctx, driverID)
		if err != nil {
			return err
		}

		if !driver.CanUpdateRides() {
			return newError(op, ErrDriverUnavailable, rideID, driverID)
		}

		// The table is checked first so an impossible move reports
		// InvalidStatus even on a ride nobody is assigned to.
		if !domain.CanTransition(ride.Status, requested) {
			return newError(op, ErrInvalidStatus, rideID, driverID)
		}

		if !ride.IsAssignedTo(driverID) {
			return newError(op, ErrRideNotAvailable, rideID, driverID)
		}

		previous = ride.Status
		target := requested

		if requested == domain.RideStatusCompleted {
			outcome, err = s.settlement.Settle(ctx, repos.Payments, ride)
			if err != nil {
				return err
			}
			target = outcome.RideStatus
		}

		now := s.now()
		ride.Status = target
		ride.UpdatedAt = now
		if target == domain.RideStatusCancelled {
			ride.DriverID = ""
			ride.CancelledAt = now
		}
		if err := repos.Rides.Update(ctx, ride); err != nil {
			return err
		}

		if requested == domain.RideStatusCompleted || requested == domain.RideStatusCancelled {
			released, err = s.availability.Release(ctx, repos.Drivers, driverID, previous)
			if err != nil {
				return err
			}
		}

		if target == domain.RideStatusCancelled && previous == domain.RideStatusPaymentConfirmed {
			orphaned, err = s.authorizedPayment(ctx, repos.Payments, rideID)
			if err != nil {
				return err
			}
		}

		result.Ride = ride
		return nil
	})
	if err != nil {
		return nil, s.failed(op, err, rideID, driverID)
	}

	ride := result.Ride
	if ride.Status != previous {
		metrics.RideTransitionsTotal.WithLabelValues(string(previous), string(ride.Status)).Inc()
	}
	if outcome != nil {
		result.Payment = outcome.Payment
		result.GatewayCalled = outcome.GatewayCalled
		metrics.SettlementsTotal.WithLabelValues(outcome.Result).Inc()
	}

	s.logger.Info("ride status updated",
		zap.String("ride_id", rideID),
		zap.String("driver_id", driverID),
		zap.String("from", string(previous)),
		zap.String("requested", string(requested)),
		zap.String("to", string(ride.Status)),
		zap.Bool("driver_released", released),
	)

	if orphaned != nil {
		metrics.SettlementsTotal.WithLabelValues("orphaned_authorization").Inc()
		s.logger.Warn("cancelled ride leaves an authorized payment",
			zap.String("ride_id", rideID),
			zap.String("driver_id", driverID),
			zap.String("payment_id", orphaned.ID),
			zap.String("gateway_payment_id", orphaned.GatewayPaymentID),
			zap.Float64("amount", orphaned.Amount),
		)
	}

	if released {
		s.availability.Mirror(ctx, driverID, domain.AvailabilityAvailable)
	}
	s.invalidateRide(ctx, rideID)
	// Settled rides count towards the report; leaving PAYMENT_CONFIRMED
	// for CANCELLED takes one out of it.
	if outcome != nil || previous == domain.RideStatusPaymentConfirmed {
		s.invalidateReport(ctx, driverID)
	}

	s.publish(ctx, events.NewRideStatusUpdated(rideID, driverID, ride.Status))
	if result.GatewayCalled {
		s.publish(ctx, events.NewPaymentAuthorized(rideID, result.Payment.ID, result.Payment.Amount))
	}

	return &result, nil
}

// ExpireStaleRequests cancels REQUESTED rides created before cutoff, one
// transaction per ride. Rides picked up by a driver in the meantime are
// skipped. It returns the number of rides cancelled.
func (s *DispatchService) ExpireStaleRequests(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	const op = "ExpireStaleRequests"

	var ids []string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ids, err = repos.Rides.ListRequestedBefore(ctx, cutoff, limit)
		return err
	})
	if err != nil {
		return 0, s.failed(op, err, "", "")
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, s.failed(op, err, "", "")
		}

		cancelled := false
		err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			ride, err := repos.Rides.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}

			if ride.Status != domain.RideStatusRequested || !domain.CanTransition(ride.Status, domain.RideStatusCancelled) {
				return nil
			}

			now := s.now()
			ride.Status = domain.RideStatusCancelled
			ride.CancelledAt = now
			ride.UpdatedAt = now
			if err := repos.Rides.Update(ctx, ride); err != nil {
				return err
			}

			cancelled = true
			return nil
		})
		if err != nil {
			return expired, s.failed(op, err, id, "")
		}

		if !cancelled {
			continue
		}

		expired++
		metrics.RideTransitionsTotal.WithLabelValues(string(domain.RideStatusRequested), string(domain.RideStatusCancelled)).Inc()
		metrics.ExpiredRequestsTotal.Inc()
		s.invalidateRide(ctx, id)
		s.publish(ctx, events.NewRideStatusUpdated(id, "", domain.RideStatusCancelled))
	}

	return expired, nil
}

// authorizedPayment returns the ride's payment when it is authorized but not
// captured, or nil.
func (s *DispatchService) authorizedPayment(ctx context.Context, payments repository.PaymentRepository, rideID string) (*domain.Payment, error) {
	payment, err := payments.GetByRideID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if payment.Status != domain.PaymentStatusAuthorized {
		return nil, nil
	}
	return payment, nil
}

func (s *DispatchService) failed(op string, err error, rideID, driverID string) error {
	err = classify(op, err, rideID, driverID)
	kind := KindOf(err)
	metrics.DispatchFailuresTotal.WithLabelValues(op, kindLabel(kind)).Inc()

	if kind == ErrInternal || kind == ErrPaymentProcessingFailed {
		s.logger.Error("dispatch operation failed",
			zap.String("op", op),
			zap.String("ride_id", rideID),
			zap.String("driver_id", driverID),
			zap.Error(err),
		)
	}
	return err
}

func (s *DispatchService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}

	result := "ok"
	if err := s.publisher.Publish(ctx, event); err != nil {
		result = "error"
		s.logger.Warn("failed to publish event",
			zap.String("event", string(event.Name)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Name), result).Inc()
}

func (s *DispatchService) invalidateRide(ctx context.Context, rideID string) {
	if s.rideCache == nil {
		return
	}
	if err := s.rideCache.InvalidateRide(ctx, rideID); err != nil {
		s.logger.Warn("failed to invalidate ride cache", zap.String("ride_id", rideID), zap.Error(err))
	}
}

func (s *DispatchService) invalidateReport(ctx context.Context, driverID string) {
	if s.reportCache == nil {
		return
	}
	if err := s.reportCache.InvalidateReport(ctx, driverID); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("driver_id", driverID), zap.Error(err))
	}
}

func validateIDs(driverID, rideID string) error {
	if strings.TrimSpace(driverID) == "" {
		return ErrInvalidDriverID
	}
	if strings.TrimSpace(rideID) == "" {
		return ErrInvalidRideID
	}
	return nil
}

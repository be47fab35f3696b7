package tests

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// fixture wires the dispatch services over in-memory collaborators.
type fixture struct {
	store     *MockStore
	gateway   *MockPaymentGateway
	publisher *MockPublisher
	cache     *MockCacheStore

	dispatch *service.DispatchService
	rides    *service.RideService
	reports  *service.ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLogger(zaptest.NewLogger(t))
}

// newObservedFixture records warnings and above for assertions.
func newObservedFixture(t *testing.T) (*fixture, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return newFixtureWithLogger(zap.New(core)), logs
}

func newFixtureWithLogger(logger *zap.Logger) *fixture {
	f := &fixture{
		store:     NewMockStore(),
		gateway:   NewMockPaymentGateway(),
		publisher: NewMockPublisher(),
		cache:     NewMockCacheStore(),
	}

	repos := f.store.Repositories()
	settlement := service.NewSettlementCoordinator(f.gateway)
	availability := service.NewAvailabilityCoordinator(f.cache, logger)
	f.dispatch = service.NewDispatchService(f.store, settlement, availability, f.publisher, f.cache, f.cache, logger)
	f.rides = service.NewRideService(repos.Rides, f.cache, f.publisher, logger)
	f.reports = service.NewReportService(repos.Rides, repos.Drivers, f.cache, logger)

	return f
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func (f *fixture) addDriver(id string, status domain.DriverStatus, availability domain.AvailabilityStatus) {
	f.store.AddDriver(&domain.Driver{
		ID:           id,
		UserID:       "user-" + id,
		Status:       status,
		Availability: availability,
	})
}

func (f *fixture) addAvailableDriver(id string) {
	f.addDriver(id, domain.DriverStatusActive, domain.AvailabilityAvailable)
}

func (f *fixture) addRequestedRide(id string) {
	f.store.AddRide(&domain.Ride{
		ID:         id,
		CustomerID: "customer-" + id,
		Status:     domain.RideStatusRequested,
		FareAmount: 25.0,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	})
}

// addAssignedRide seeds a ride in ASSIGNED together with its busy driver.
func (f *fixture) addAssignedRide(rideID, driverID string) {
	f.addDriver(driverID, domain.DriverStatusActive, domain.AvailabilityBusy)
	f.store.AddRide(&domain.Ride{
		ID:         rideID,
		CustomerID: "customer-" + rideID,
		DriverID:   driverID,
		Status:     domain.RideStatusAssigned,
		FareAmount: 25.0,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	})
}

func (f *fixture) addPayment(rideID string, status domain.PaymentStatus) {
	f.store.AddPayment(&domain.Payment{
		ID:         "payment-" + rideID,
		RideID:     rideID,
		CustomerID: "customer-" + rideID,
		Amount:     25.0,
		Status:     status,
		Method:     domain.PaymentMethodCard,
		Details:    map[string]string{"card_token": "tok_visa"},
		UpdatedAt:  baseTime,
	})
}

func (f *fixture) assertInvariants(t *testing.T) {
	t.Helper()
	if err := f.store.CheckInvariants(); err != nil {
		t.Errorf("invariant violated: %v", err)
	}
}

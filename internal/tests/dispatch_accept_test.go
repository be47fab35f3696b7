package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/service"
)

func TestAcceptRide_AssignsRideAndReservesDriver(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRequestedRide("ride-1")
	f.addAvailableDriver("driver-5")
	_ = f.cache.AddAvailableDriver(context.Background(), "driver-5")

	ride, err := f.dispatch.AcceptRide(context.Background(), "driver-5", "ride-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ride.Status != domain.RideStatusAssigned {
		t.Errorf("expected returned ride ASSIGNED, got %s", ride.Status)
	}

	stored := f.store.Ride("ride-1")
	if stored.Status != domain.RideStatusAssigned {
		t.Errorf("expected ride ASSIGNED, got %s", stored.Status)
	}
	if stored.DriverID != "driver-5" {
		t.Errorf("expected driver-5 linked, got %q", stored.DriverID)
	}
	if got := f.store.Driver("driver-5").Availability; got != domain.AvailabilityBusy {
		t.Errorf("expected driver busy, got %s", got)
	}
	if f.cache.IsAvailable("driver-5") {
		t.Error("expected driver removed from available set")
	}

	if got := f.publisher.Names(); len(got) != 1 || got[0] != events.RideAccepted {
		t.Errorf("expected [ride.accepted], got %v", got)
	}

	f.assertInvariants(t)
}

func TestAcceptRide_DriverPreconditions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		status       domain.DriverStatus
		availability domain.AvailabilityStatus
	}{
		{"inactive", domain.DriverStatusInactive, domain.AvailabilityAvailable},
		{"busy", domain.DriverStatusActive, domain.AvailabilityBusy},
		{"unavailable", domain.DriverStatusActive, domain.AvailabilityUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.addRequestedRide("ride-1")
			f.addDriver("driver-1", tc.status, tc.availability)

			_, err := f.dispatch.AcceptRide(context.Background(), "driver-1", "ride-1")
			if !errors.Is(err, service.ErrDriverUnavailable) {
				t.Fatalf("expected ErrDriverUnavailable, got %v", err)
			}

			if got := f.store.Ride("ride-1").Status; got != domain.RideStatusRequested {
				t.Errorf("expected ride to stay REQUESTED, got %s", got)
			}
			if got := f.store.Driver("driver-1").Availability; got != tc.availability {
				t.Errorf("expected availability unchanged, got %s", got)
			}
			if n := len(f.publisher.Events()); n != 0 {
				t.Errorf("expected no events, got %d", n)
			}
		})
	}
}

func TestAcceptRide_RidePreconditions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		seed   func(f *fixture)
		rideID string
		want   error
	}{
		{
			name:   "missing ride",
			seed:   func(f *fixture) {},
			rideID: "ride-missing",
			want:   service.ErrNotFound,
		},
		{
			name:   "already assigned",
			seed:   func(f *fixture) { f.addAssignedRide("ride-1", "driver-other") },
			rideID: "ride-1",
			want:   service.ErrRideNotAvailable,
		},
		{
			name: "cancelled",
			seed: func(f *fixture) {
				f.store.AddRide(&domain.Ride{ID: "ride-1", CustomerID: "c1", Status: domain.RideStatusCancelled})
			},
			rideID: "ride-1",
			want:   service.ErrRideNotAvailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.addAvailableDriver("driver-1")
			tc.seed(f)

			_, err := f.dispatch.AcceptRide(context.Background(), "driver-1", tc.rideID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := f.store.Driver("driver-1").Availability; got != domain.AvailabilityAvailable {
				t.Errorf("expected driver to stay available, got %s", got)
			}
		})
	}
}

func TestAcceptRide_MissingDriverIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRequestedRide("ride-1")

	_, err := f.dispatch.AcceptRide(context.Background(), "ghost", "ride-1")
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptRide_ValidatesIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	if _, err := f.dispatch.AcceptRide(context.Background(), "", "ride-1"); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Errorf("expected ErrInvalidDriverID, got %v", err)
	}
	if _, err := f.dispatch.AcceptRide(context.Background(), "driver-1", " "); !errors.Is(err, service.ErrInvalidRideID) {
		t.Errorf("expected ErrInvalidRideID, got %v", err)
	}
	if n := atomic.LoadInt32(&f.store.TxCount); n != 0 {
		t.Errorf("expected no transaction for invalid input, got %d", n)
	}
}

func TestAcceptRide_ErrorCarriesContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addAssignedRide("ride-1", "driver-other")
	f.addAvailableDriver("driver-1")

	_, err := f.dispatch.AcceptRide(context.Background(), "driver-1", "ride-1")

	var de *service.DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DispatchError, got %T", err)
	}
	if de.Op != "AcceptRide" || de.RideID != "ride-1" || de.DriverID != "driver-1" {
		t.Errorf("unexpected error context: %+v", de)
	}
	if service.KindOf(err) != service.ErrRideNotAvailable {
		t.Errorf("expected kind ErrRideNotAvailable, got %v", service.KindOf(err))
	}
}

func TestAcceptRide_RollsBackWhenReserveFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRequestedRide("ride-1")
	f.addAvailableDriver("driver-1")
	f.store.UpdateAvailabilityError = ErrMockDBFailure

	_, err := f.dispatch.AcceptRide(context.Background(), "driver-1", "ride-1")
	if !errors.Is(err, service.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if !errors.Is(err, ErrMockDBFailure) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}

	if got := f.store.Ride("ride-1").Status; got != domain.RideStatusRequested {
		t.Errorf("expected ride to stay REQUESTED, got %s", got)
	}
	if n := atomic.LoadInt32(&f.store.CommitCount); n != 0 {
		t.Errorf("expected no commit, got %d", n)
	}
	if n := len(f.publisher.Events()); n != 0 {
		t.Errorf("expected no events after rollback, got %d", n)
	}
	f.assertInvariants(t)
}

func TestAcceptRide_LocksRideBeforeDriver(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRequestedRide("ride-1")
	f.addAvailableDriver("driver-1")

	if _, err := f.dispatch.AcceptRide(context.Background(), "driver-1", "ride-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := f.store.LockLog()
	want := []string{"ride:ride-1", "driver:driver-1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected lock order %v, got %v", want, got)
	}
}

func TestAcceptRide_ConcurrentDriversExactlyOneWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRequestedRide("ride-1")

	const drivers = 8
	for i := 0; i < drivers; i++ {
		f.addAvailableDriver(fmt.Sprintf("driver-%d", i))
	}

	var (
		wg           sync.WaitGroup
		successCount int32
		notAvailable int32
		start        = make(chan struct{})
	)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(driverID string) {
			defer wg.Done()
			<-start
			_, err := f.dispatch.AcceptRide(context.Background(), driverID, "ride-1")
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, service.ErrRideNotAvailable):
				atomic.AddInt32(&notAvailable, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("driver-%d", i))
	}

	close(start)
	wg.Wait()

	if successCount != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successCount)
	}
	if notAvailable != drivers-1 {
		t.Errorf("expected %d RideNotAvailable, got %d", drivers-1, notAvailable)
	}

	ride := f.store.Ride("ride-1")
	busy := 0
	for i := 0; i < drivers; i++ {
		if f.store.Driver(fmt.Sprintf("driver-%d", i)).Availability == domain.AvailabilityBusy {
			busy++
		}
	}
	if busy != 1 {
		t.Errorf("expected exactly one busy driver, got %d", busy)
	}
	if got := f.store.Driver(ride.DriverID).Availability; got != domain.AvailabilityBusy {
		t.Errorf("expected winning driver %s busy, got %s", ride.DriverID, got)
	}
	if n := f.publisher.Count(events.RideAccepted); n != 1 {
		t.Errorf("expected one ride.accepted event, got %d", n)
	}

	f.assertInvariants(t)
}

func TestAcceptRide_OneDriverTwoRidesConcurrently(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRequestedRide("ride-a")
	f.addRequestedRide("ride-b")
	f.addAvailableDriver("driver-1")

	var (
		wg           sync.WaitGroup
		successCount int32
		unavailable  int32
	)

	for _, rideID := range []string{"ride-a", "ride-b"} {
		wg.Add(1)
		go func(rideID string) {
			defer wg.Done()
			_, err := f.dispatch.AcceptRide(context.Background(), "driver-1", rideID)
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, service.ErrDriverUnavailable):
				atomic.AddInt32(&unavailable, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(rideID)
	}
	wg.Wait()

	if successCount != 1 || unavailable != 1 {
		t.Fatalf("expected 1 success and 1 DriverUnavailable, got %d and %d", successCount, unavailable)
	}

	assigned := 0
	for _, id := range []string{"ride-a", "ride-b"} {
		if f.store.Ride(id).Status == domain.RideStatusAssigned {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("expected exactly one ASSIGNED ride, got %d", assigned)
	}

	f.assertInvariants(t)
}

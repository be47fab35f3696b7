package tests

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

func rating(v float64) *float64 { return &v }

func (f *fixture) addSettledRide(id, driverID string, status domain.RideStatus, fare, tip float64, r *float64) {
	f.store.AddRide(&domain.Ride{
		ID:         id,
		CustomerID: "customer-" + id,
		DriverID:   driverID,
		Status:     status,
		FareAmount: fare,
		TipAmount:  tip,
		Rating:     r,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	})
}

func TestDriverReport_AggregatesSettledRides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addAvailableDriver("driver-1")
	f.addSettledRide("ride-1", "driver-1", domain.RideStatusCompleted, 20, 2, rating(5))
	f.addSettledRide("ride-2", "driver-1", domain.RideStatusPaymentConfirmed, 30, 0, rating(4))
	f.addSettledRide("ride-3", "driver-1", domain.RideStatusCompleted, 10, 1.5, nil)
	// Not settled yet, or another driver's: ignored.
	f.addSettledRide("ride-4", "driver-2", domain.RideStatusCompleted, 99, 9, rating(1))
	f.store.AddRide(&domain.Ride{ID: "ride-5", CustomerID: "c", Status: domain.RideStatusCancelled, FareAmount: 50, CreatedAt: baseTime})

	report, err := f.reports.DriverReport(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.DriverID != "driver-1" {
		t.Errorf("expected driver-1, got %q", report.DriverID)
	}
	if report.TotalRides != 3 {
		t.Errorf("expected 3 rides, got %d", report.TotalRides)
	}
	if math.Abs(report.Earnings-60) > 1e-9 {
		t.Errorf("expected earnings 60, got %v", report.Earnings)
	}
	if math.Abs(report.Tips-3.5) > 1e-9 {
		t.Errorf("expected tips 3.5, got %v", report.Tips)
	}
	if report.RatedRides != 2 {
		t.Errorf("expected 2 rated rides, got %d", report.RatedRides)
	}
	if math.Abs(report.AverageRating-4.5) > 1e-9 {
		t.Errorf("expected average rating 4.5, got %v", report.AverageRating)
	}
}

func TestDriverReport_EmptyForNewDriver(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addAvailableDriver("driver-1")

	report, err := f.reports.DriverReport(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.TotalRides != 0 || report.Earnings != 0 || report.AverageRating != 0 {
		t.Errorf("expected zero report, got %+v", report)
	}
}

func TestDriverReport_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown driver", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reports.DriverReport(context.Background(), "ghost")
		if !errors.Is(err, service.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty driver id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reports.DriverReport(context.Background(), " ")
		if !errors.Is(err, service.ErrInvalidDriverID) {
			t.Fatalf("expected ErrInvalidDriverID, got %v", err)
		}
	})

	t.Run("list failure", func(t *testing.T) {
		f := newFixture(t)
		f.addAvailableDriver("driver-1")
		f.store.ListError = ErrMockDBFailure

		_, err := f.reports.DriverReport(context.Background(), "driver-1")
		if !errors.Is(err, service.ErrInternal) {
			t.Fatalf("expected ErrInternal, got %v", err)
		}
	})
}

func TestDriverReport_CachedUntilSettlement(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addAssignedRide("ride-1", "driver-1")
	f.addPayment("ride-1", domain.PaymentStatusPending)

	first, err := f.reports.DriverReport(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	if first.TotalRides != 0 {
		t.Fatalf("expected no settled rides yet, got %d", first.TotalRides)
	}

	if _, err := f.reports.DriverReport(context.Background(), "driver-1"); err != nil {
		t.Fatalf("second report: %v", err)
	}
	if hits := atomic.LoadInt32(&f.cache.ReportHits); hits != 1 {
		t.Errorf("expected one cache hit, got %d", hits)
	}

	if _, err := f.dispatch.UpdateRideStatus(context.Background(), "driver-1", "ride-1", "COMPLETED"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	report, err := f.reports.DriverReport(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("report after settlement: %v", err)
	}
	if report.TotalRides != 1 || report.Earnings != 25.0 {
		t.Errorf("expected the settled ride counted, got %+v", report)
	}
}

func TestDriverReport_CacheFailureFallsBackToStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addAvailableDriver("driver-1")
	f.addSettledRide("ride-1", "driver-1", domain.RideStatusCompleted, 40, 0, nil)
	f.cache.GetError = errors.New("redis down")

	report, err := f.reports.DriverReport(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.TotalRides != 1 {
		t.Errorf("expected 1 ride, got %d", report.TotalRides)
	}
}

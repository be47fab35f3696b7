package service

import (
	"context"
	"errors"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

type memPayments struct {
	payment   *domain.Payment
	locked    bool
	updated   *domain.Payment
	updateErr error
}

func (m *memPayments) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	if m.payment == nil || m.payment.RideID != rideID {
		return nil, repository.ErrNotFound
	}
	c := *m.payment
	return &c, nil
}

func (m *memPayments) GetByRideIDForUpdate(ctx context.Context, rideID string) (*domain.Payment, error) {
	m.locked = true
	return m.GetByRideID(ctx, rideID)
}

func (m *memPayments) Update(ctx context.Context, payment *domain.Payment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	c := *payment
	m.updated = &c
	return nil
}

type countingGateway struct {
	calls int
	err   error
}

func (g *countingGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &AuthorizeResult{GatewayPaymentID: "gw-" + req.RideID}, nil
}

func TestSettlementCoordinator_Settle(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		status      domain.PaymentStatus
		wantRide    domain.RideStatus
		wantPayment domain.PaymentStatus
		wantCalls   int
		wantWrite   bool
		wantResult  string
	}{
		{"pending authorizes", domain.PaymentStatusPending, domain.RideStatusPaymentConfirmed, domain.PaymentStatusAuthorized, 1, true, "authorized"},
		{"authorized captures", domain.PaymentStatusAuthorized, domain.RideStatusCompleted, domain.PaymentStatusCompleted, 0, true, "captured"},
		{"completed is a no-op", domain.PaymentStatusCompleted, domain.RideStatusCompleted, domain.PaymentStatusCompleted, 0, false, "already_completed"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payments := &memPayments{payment: &domain.Payment{ID: "p1", RideID: "r1", Amount: 10, Status: tc.status}}
			gateway := &countingGateway{}
			c := NewSettlementCoordinator(gateway)

			out, err := c.Settle(context.Background(), payments, &domain.Ride{ID: "r1", DriverID: "d1"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !payments.locked {
				t.Error("expected the payment row locked")
			}
			if out.RideStatus != tc.wantRide {
				t.Errorf("expected ride %s, got %s", tc.wantRide, out.RideStatus)
			}
			if out.Payment.Status != tc.wantPayment {
				t.Errorf("expected payment %s, got %s", tc.wantPayment, out.Payment.Status)
			}
			if gateway.calls != tc.wantCalls || out.GatewayCalled != (tc.wantCalls == 1) {
				t.Errorf("expected %d gateway calls, got %d (reported %v)", tc.wantCalls, gateway.calls, out.GatewayCalled)
			}
			if (payments.updated != nil) != tc.wantWrite {
				t.Errorf("expected write=%v, got %+v", tc.wantWrite, payments.updated)
			}
			if out.Result != tc.wantResult {
				t.Errorf("expected result %q, got %q", tc.wantResult, out.Result)
			}
		})
	}
}

func TestSettlementCoordinator_Failures(t *testing.T) {
	t.Parallel()

	ride := &domain.Ride{ID: "r1", DriverID: "d1"}

	t.Run("missing payment", func(t *testing.T) {
		c := NewSettlementCoordinator(&countingGateway{})
		_, err := c.Settle(context.Background(), &memPayments{}, ride)
		if !errors.Is(err, ErrPaymentProcessingFailed) {
			t.Fatalf("expected ErrPaymentProcessingFailed, got %v", err)
		}
	})

	t.Run("gateway error", func(t *testing.T) {
		cause := errors.New("card declined")
		payments := &memPayments{payment: &domain.Payment{ID: "p1", RideID: "r1", Status: domain.PaymentStatusPending}}
		c := NewSettlementCoordinator(&countingGateway{err: cause})

		_, err := c.Settle(context.Background(), payments, ride)
		if !errors.Is(err, ErrPaymentProcessingFailed) || !errors.Is(err, cause) {
			t.Fatalf("expected payment failure wrapping the cause, got %v", err)
		}
		var de *DispatchError
		if !errors.As(err, &de) || de.PaymentID != "p1" {
			t.Errorf("expected payment id on error, got %v", err)
		}
		if payments.updated != nil {
			t.Error("expected no payment write")
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		payments := &memPayments{payment: &domain.Payment{ID: "p1", RideID: "r1", Status: "refunded"}}
		c := NewSettlementCoordinator(&countingGateway{})

		_, err := c.Settle(context.Background(), payments, ride)
		if !errors.Is(err, ErrPaymentProcessingFailed) {
			t.Fatalf("expected ErrPaymentProcessingFailed, got %v", err)
		}
	})

	t.Run("write failure is internal", func(t *testing.T) {
		payments := &memPayments{
			payment:   &domain.Payment{ID: "p1", RideID: "r1", Status: domain.PaymentStatusAuthorized},
			updateErr: errors.New("connection reset"),
		}
		c := NewSettlementCoordinator(&countingGateway{})

		_, err := c.Settle(context.Background(), payments, ride)
		if KindOf(err) != ErrInternal {
			t.Fatalf("expected an internal failure, got %v", err)
		}
	})
}

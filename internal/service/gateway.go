package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/metrics"
)

// ErrPaymentDeclined is returned by a gateway that refuses an authorization.
var ErrPaymentDeclined = errors.New("payment declined by gateway")

// AuthorizeRequest describes a payment authorization.
type AuthorizeRequest struct {
	RideID     string
	CustomerID string
	Amount     float64
	Method     domain.PaymentMethod
	Details    map[string]string
}

// AuthorizeResult is the gateway's answer to a successful authorization.
type AuthorizeResult struct {
	GatewayPaymentID string
}

// PaymentGateway is the external payment processor.
type PaymentGateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
}

// MockGateway approves every positive amount.
type MockGateway struct{}

// NewMockGateway creates a new MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Authorize simulates an authorization.
func (g *MockGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, ErrPaymentDeclined
	}
	return &AuthorizeResult{GatewayPaymentID: "mock_" + uuid.New().String()}, nil
}

// TimeoutGateway bounds every call to the wrapped gateway and records its latency.
// It never retries.
type TimeoutGateway struct {
	next    PaymentGateway
	timeout time.Duration
}

// NewTimeoutGateway wraps next. A zero timeout leaves the caller's deadline in place.
func NewTimeoutGateway(next PaymentGateway, timeout time.Duration) *TimeoutGateway {
	return &TimeoutGateway{next: next, timeout: timeout}
}

// Authorize forwards to the wrapped gateway under the configured timeout.
func (g *TimeoutGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.next.Authorize(ctx, req)

	result := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	}
	metrics.GatewayRequestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	return res, err
}

var (
	_ PaymentGateway = (*MockGateway)(nil)
	_ PaymentGateway = (*TimeoutGateway)(nil)
)

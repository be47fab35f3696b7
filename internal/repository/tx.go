package repository

import "context"

// Repositories groups the repositories bound to one transaction.
type Repositories struct {
	Rides    RideRepository
	Drivers  DriverRepository
	Payments PaymentRepository
}

// Transactor runs a unit of work. fn receives repositories scoped to a single
// transaction; a nil return commits it, any error or panic rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCompleted  PaymentStatus = "completed"
)

// PaymentMethod represents the payment method for a ride.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodUPI    PaymentMethod = "UPI"
)

// Payment is the ledger entry for a ride. There is exactly one per ride.
type Payment struct {
	ID               string
	RideID           string
	CustomerID       string
	Amount           float64
	Status           PaymentStatus
	Method           PaymentMethod
	Details          map[string]string // method descriptor, e.g. card token or wallet id
	GatewayPaymentID string
	UpdatedAt        time.Time
}

package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested        RideStatus = "REQUESTED"
	RideStatusAssigned         RideStatus = "ASSIGNED"
	RideStatusPaymentConfirmed RideStatus = "PAYMENT_CONFIRMED"
	RideStatusCompleted        RideStatus = "COMPLETED"
	RideStatusCancelled        RideStatus = "CANCELLED"
)

// ParseRideStatus returns the status named by s and whether it is a member of the enum.
func ParseRideStatus(s string) (RideStatus, bool) {
	switch status := RideStatus(s); status {
	case RideStatusRequested, RideStatusAssigned, RideStatusPaymentConfirmed,
		RideStatusCompleted, RideStatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no transition leaves the status.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// HasDriver reports whether a ride in this status must reference a driver.
func (s RideStatus) HasDriver() bool {
	switch s {
	case RideStatusAssigned, RideStatusPaymentConfirmed, RideStatusCompleted:
		return true
	default:
		return false
	}
}

// DeclineDetails records why and by whom a requested ride was declined.
type DeclineDetails struct {
	Reason     string    `json:"reason"`
	DeclinedBy string    `json:"declined_by"`
	DeclinedAt time.Time `json:"declined_at"`
}

// Ride represents a ride tracked through the dispatch lifecycle.
type Ride struct {
	ID          string
	CustomerID  string
	DriverID    string // empty while no driver is linked
	Status      RideStatus
	FareAmount  float64
	TipAmount   float64
	Rating      *float64
	Decline     *DeclineDetails // set only when cancelled by decline
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt time.Time
}

// IsAssignedTo reports whether the ride is currently linked to driverID.
func (r *Ride) IsAssignedTo(driverID string) bool {
	return r.DriverID != "" && r.DriverID == driverID
}

// RideMessage is a chat message posted into a ride room.
type RideMessage struct {
	RideID  string
	Sender  string
	Message string
	SentAt  time.Time
}

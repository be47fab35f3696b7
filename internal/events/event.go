package events

import (
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
)

// Name identifies an event and doubles as its routing key.
type Name string

const (
	RideAccepted      Name = "ride.accepted"
	RideDeclined      Name = "ride.declined"
	RideStatusUpdated Name = "ride.status_updated"
	PaymentAuthorized Name = "payment.authorized"
	RideMessage       Name = "ride.message"
)

// Audience is a delivery target for an event.
type Audience string

const (
	AudienceDriver   Audience = "driver"
	AudienceCustomer Audience = "customer"
	AudienceRideRoom Audience = "ride_room"
	AudienceAdmin    Audience = "admin"
)

// Event is a fact emitted after a transaction commits.
type Event struct {
	ID         string     `json:"id"`
	Name       Name       `json:"name"`
	Audience   []Audience `json:"audience"`
	Payload    any        `json:"payload"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func newEvent(name Name, payload any, audience ...Audience) Event {
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		Audience:   audience,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// RideAcceptedPayload is the body of ride.accepted.
type RideAcceptedPayload struct {
	RideID   string `json:"ride_id"`
	DriverID string `json:"driver_id"`
}

// RideDeclinedPayload is the body of ride.declined.
type RideDeclinedPayload struct {
	RideID         string                `json:"ride_id"`
	DriverID       string                `json:"driver_id"`
	DeclineDetails domain.DeclineDetails `json:"decline_details"`
}

// RideStatusPayload is the body of ride.status_updated.
type RideStatusPayload struct {
	RideID   string            `json:"ride_id"`
	DriverID string            `json:"driver_id"`
	Status   domain.RideStatus `json:"status"`
}

// PaymentAuthorizedPayload is the body of payment.authorized.
type PaymentAuthorizedPayload struct {
	RideID    string  `json:"ride_id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
}

// RideMessagePayload is the body of ride.message.
type RideMessagePayload struct {
	RideID    string    `json:"ride_id"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRideAccepted builds the ride.accepted event.
func NewRideAccepted(rideID, driverID string) Event {
	return newEvent(RideAccepted,
		RideAcceptedPayload{RideID: rideID, DriverID: driverID},
		AudienceDriver, AudienceRideRoom)
}

// NewRideDeclined builds the ride.declined event.
func NewRideDeclined(rideID, driverID string, details domain.DeclineDetails) Event {
	return newEvent(RideDeclined,
		RideDeclinedPayload{RideID: rideID, DriverID: driverID, DeclineDetails: details},
		AudienceRideRoom)
}

// NewRideStatusUpdated builds the ride.status_updated event.
func NewRideStatusUpdated(rideID, driverID string, status domain.RideStatus) Event {
	return newEvent(RideStatusUpdated,
		RideStatusPayload{RideID: rideID, DriverID: driverID, Status: status},
		AudienceRideRoom, AudienceCustomer, AudienceDriver)
}

// NewPaymentAuthorized builds the payment.authorized event.
func NewPaymentAuthorized(rideID, paymentID string, amount float64) Event {
	return newEvent(PaymentAuthorized,
		PaymentAuthorizedPayload{RideID: rideID, PaymentID: paymentID, Amount: amount},
		AudienceCustomer, AudienceDriver)
}

// NewRideMessage builds the ride.message event.
func NewRideMessage(msg domain.RideMessage) Event {
	return newEvent(RideMessage,
		RideMessagePayload{RideID: msg.RideID, Message: msg.Message, Sender: msg.Sender, Timestamp: msg.SentAt},
		AudienceRideRoom, AudienceCustomer, AudienceDriver, AudienceAdmin)
}

package domain

// DriverStatus represents whether a driver account may take rides at all.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

// AvailabilityStatus represents a driver's capacity to take a new assignment.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityBusy        AvailabilityStatus = "busy"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// Driver represents a driver in the system.
type Driver struct {
	ID           string
	UserID       string
	Status       DriverStatus
	Availability AvailabilityStatus
}

// CanAccept reports whether the driver may accept or decline a requested ride.
func (d *Driver) CanAccept() bool {
	return d.Status == DriverStatusActive && d.Availability == AvailabilityAvailable
}

// CanUpdateRides reports whether the driver may move one of their rides forward.
func (d *Driver) CanUpdateRides() bool {
	return d.Status == DriverStatusActive && d.Availability != AvailabilityUnavailable
}

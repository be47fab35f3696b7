package domain

// Transitions is the ride state machine as code. Every status has an entry;
// terminal statuses map to nothing.
var Transitions = map[RideStatus][]RideStatus{
	RideStatusRequested:        {RideStatusAssigned, RideStatusCancelled},
	RideStatusAssigned:         {RideStatusPaymentConfirmed, RideStatusCompleted, RideStatusCancelled},
	RideStatusPaymentConfirmed: {RideStatusCompleted, RideStatusCancelled},
	RideStatusCompleted:        {},
	RideStatusCancelled:        {},
}

// CanTransition reports whether the table permits moving from one status to another.
func CanTransition(from, to RideStatus) bool {
	next, ok := Transitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// SettlementOnly reports whether a status may only be entered as the outcome of
// settlement, never requested directly by a driver.
func SettlementOnly(s RideStatus) bool {
	return s == RideStatusPaymentConfirmed
}

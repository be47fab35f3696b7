package domain

// DriverReport aggregates a driver's settled rides.
type DriverReport struct {
	DriverID      string  `json:"driver_id"`
	TotalRides    int     `json:"total_rides"`
	Earnings      float64 `json:"earnings"`
	Tips          float64 `json:"tips"`
	AverageRating float64 `json:"average_rating"`
	RatedRides    int     `json:"rated_rides"`
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// DriverHandler handles HTTP requests a driver makes about rides.
type DriverHandler struct {
	dispatchService *service.DispatchService
	reportService   *service.ReportService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(dispatchService *service.DispatchService, reportService *service.ReportService) *DriverHandler {
	return &DriverHandler{
		dispatchService: dispatchService,
		reportService:   reportService,
	}
}

// DeclineRideRequest is the HTTP request body for declining a ride.
type DeclineRideRequest struct {
	Reason string `json:"reason"`
}

// UpdateStatusRequest is the HTTP request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// DeclineResponse is the decline details of a cancelled ride.
type DeclineResponse struct {
	Reason     string `json:"reason"`
	DeclinedBy string `json:"declined_by"`
	DeclinedAt string `json:"declined_at"`
}

// RideResponse is the HTTP response for ride data.
type RideResponse struct {
	ID          string           `json:"id"`
	CustomerID  string           `json:"customer_id"`
	DriverID    string           `json:"driver_id,omitempty"`
	Status      string           `json:"status"`
	FareAmount  float64          `json:"fare_amount"`
	Decline     *DeclineResponse `json:"decline_details,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	CancelledAt string           `json:"cancelled_at,omitempty"`
}

// PaymentResponse is the HTTP response for payment data.
type PaymentResponse struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
	Method string  `json:"payment_method"`
}

// UpdateStatusResponse is the HTTP response for a status transition.
type UpdateStatusResponse struct {
	Ride          RideResponse     `json:"ride"`
	Payment       *PaymentResponse `json:"payment,omitempty"`
	GatewayCalled bool             `json:"gateway_called"`
}

// AcceptRide handles POST /v1/drivers/:id/rides/:rideId/accept
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	ride, err := h.dispatchService.AcceptRide(c.Request.Context(), c.Param("id"), c.Param("rideId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// DeclineRide handles POST /v1/drivers/:id/rides/:rideId/decline
func (h *DriverHandler) DeclineRide(c *gin.Context) {
	var req DeclineRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.dispatchService.DeclineRide(c.Request.Context(), c.Param("id"), c.Param("rideId"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// UpdateStatus handles PATCH /v1/drivers/:id/rides/:rideId/status
func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.dispatchService.UpdateRideStatus(c.Request.Context(), c.Param("id"), c.Param("rideId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := UpdateStatusResponse{
		Ride:          toRideResponse(result.Ride),
		GatewayCalled: result.GatewayCalled,
	}
	if p := result.Payment; p != nil {
		resp.Payment = &PaymentResponse{
			ID:     p.ID,
			Amount: p.Amount,
			Status: string(p.Status),
			Method: string(p.Method),
		}
	}

	respondJSON(c, http.StatusOK, resp)
}

// GetReport handles GET /v1/drivers/:id/report
func (h *DriverHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.DriverReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, report)
}

func toRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:         ride.ID,
		CustomerID: ride.CustomerID,
		DriverID:   ride.DriverID,
		Status:     string(ride.Status),
		FareAmount: ride.FareAmount,
		CreatedAt:  ride.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  ride.UpdatedAt.Format(time.RFC3339),
	}
	if d := ride.Decline; d != nil {
		resp.Decline = &DeclineResponse{
			Reason:     d.Reason,
			DeclinedBy: d.DeclinedBy,
			DeclinedAt: d.DeclinedAt.Format(time.RFC3339),
		}
	}
	if !ride.CancelledAt.IsZero() {
		resp.CancelledAt = ride.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

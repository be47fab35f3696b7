package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// SendMessageRequest is the HTTP request body for a ride message.
type SendMessageRequest struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

// MessageResponse is the HTTP response for a posted ride message.
type MessageResponse struct {
	RideID    string `json:"ride_id"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// SendMessage handles POST /v1/rides/:id/messages
func (h *RideHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.rideService.SendRideMessage(c.Request.Context(), c.Param("id"), req.SenderID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, MessageResponse{
		RideID:    msg.RideID,
		Sender:    msg.Sender,
		Message:   msg.Message,
		Timestamp: msg.SentAt.Format(time.RFC3339),
	})
}

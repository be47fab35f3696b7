package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal causes are not exposed to clients.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	kind := service.KindOf(err)

	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = kind.Error()
		_ = c.Error(err)
	}

	c.JSON(code, ErrorResponse{Error: msg, Kind: kind.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps dispatch error kinds to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidMessage):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideNotAvailable),
		errors.Is(err, service.ErrDriverUnavailable):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidStatus):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrPaymentProcessingFailed):
		return http.StatusPaymentRequired

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

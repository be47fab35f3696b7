package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicErrors reports handler errors and route identifiers to the New Relic
// transaction started by nrgin. It must run after nrgin.Middleware.
func NewRelicErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if id := c.Param("rideId"); id != "" {
			txn.AddAttribute("ride_id", id)
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("path_id", id)
		}

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}

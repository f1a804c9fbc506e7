// Package middleware holds gin middleware shared by both services.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderCorrelationID is the header clients may supply and that responses always carry.
const HeaderCorrelationID = "X-Correlation-Id"

// ContextKeyCorrelationID is the gin context key the id is stashed under.
const ContextKeyCorrelationID = "correlation_id"

// Correlation assigns a request correlation id, reusing one supplied by the caller.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderCorrelationID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyCorrelationID, id)
		c.Writer.Header().Set(HeaderCorrelationID, id)
		c.Next()
	}
}

// CorrelationID reads the id stashed by Correlation, returning "" if absent.
func CorrelationID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyCorrelationID)
	id, _ := v.(string)
	return id
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDKey is the gin context key holding the canonical request ID.
const RequestIDKey = "request_id"

// RequestIDHeader carries the request ID back to the caller.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a fresh server-generated UUID. A caller's
// own X-Request-ID is kept only as a correlation field; it is never trusted
// as the canonical ID.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			c.Set("client_request_id", clientID)
			log.WithFields(logrus.Fields{
				"request_id":        id,
				"client_request_id": clientID,
			}).Debug("correlating client-supplied request id")
		}

		c.Next()
	}
}

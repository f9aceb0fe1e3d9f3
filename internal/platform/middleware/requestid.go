package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDKey = "request_id"

// RequestID assigns each request a correlation ID, honoring an inbound
// X-Request-ID header when a gateway already set one. The ID is echoed back
// in the response and stored on the context for the logger and audit trail.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// GetRequestID returns the correlation ID assigned by RequestID, or "" when
// the middleware did not run.
func GetRequestID(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// ErrorHandler translates errors returned by handlers into JSON responses.
// Application errors map through their kind; echo errors pass through; any
// other error is a 500 with a generic body so internals never leak.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"

		switch e := err.(type) {
		case *echo.HTTPError:
			status = e.Code
			if msg, ok := e.Message.(string); ok {
				message = msg
			}
		default:
			status = apperr.HTTPStatus(err)
			message = apperr.Message(err)
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", GetRequestID(c)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, map[string]string{"error": message})
	}
}

package audit

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
)

// Middleware records every mutating request after it completes. Reads are
// left to the domain services, which record the access events that matter
// (record lookups, searches) with richer metadata than the route alone.
func Middleware(rec Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			switch method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return err
			}

			entry := Entry{
				Action:   strings.ToLower(method),
				Resource: c.Path(),
				Outcome:  OutcomeSuccess,
				Metadata: map[string]any{
					"status": c.Response().Status,
					"path":   c.Request().URL.Path,
				},
			}
			if actor, ok := auth.ActorFrom(c); ok {
				id := actor.ID
				entry.ActorID = &id
				entry.ActorEmail = actor.Email
			}
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				entry.Outcome = OutcomeFailure
				if c.Response().Status == http.StatusForbidden {
					entry.Outcome = OutcomeDenied
				}
			}

			rec.Record(c.Request().Context(), entry)
			return err
		}
	}
}

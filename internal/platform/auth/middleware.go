package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/authz"
)

const actorKey = "auth_actor"

// Middleware authenticates the request from its Bearer token and stores the
// resulting actor on the echo context. Requests without a valid token are
// rejected with 401 before any handler runs.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
			}

			claims, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			actor, err := claims.Actor()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose actor is not an admin tier. It must run
// after Middleware.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !actor.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

// ActorFrom returns the authenticated actor stored by Middleware.
func ActorFrom(c echo.Context) (authz.Actor, bool) {
	actor, ok := c.Get(actorKey).(authz.Actor)
	return actor, ok
}

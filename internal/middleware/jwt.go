// Package middleware provides shared request processing for the auth
// surface: access-token and refresh-cookie guards, role enforcement, and
// rate limiting.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vowsuite/vowsuite-api/internal/utils"
)

// Context keys populated by the guards for downstream handlers.
const (
	CtxUserID     = "user_id"
	CtxEmail      = "email"
	CtxRole       = "role"
	CtxBusinessID = "business_id"
)

// AccessAuth returns a middleware that validates a Bearer access token and
// injects the verified claims into the request context. It should wrap
// every route that requires an authenticated identity.
func AccessAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			uid, err := utils.SubjectID(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(CtxUserID, uid)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxBusinessID, claims.BusinessID)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	const prefix = "Bearer "
	auth := c.Request().Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return "", false
	}
	return auth[len(prefix):], true
}

// UserID returns the authenticated user id placed in context by AccessAuth
// or RefreshGuard.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}

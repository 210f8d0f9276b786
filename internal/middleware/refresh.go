package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/vowsuite/vowsuite-api/internal/service"
	"github.com/vowsuite/vowsuite-api/internal/utils"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// Context keys populated by RefreshGuard.
const (
	CtxRefreshTokenID  = "refresh_token_id"
	CtxRefreshTokenRaw = "refresh_token_raw"
)

// RefreshGuard verifies the refresh-token cookie's signature and expiry,
// then hands the decoded {userId, tokenId, raw} triple to the handler via
// context. Possession of a validly signed token is proven here; whether
// the server-side record is still redeemable is the session service's
// call.
func RefreshGuard(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(RefreshCookieName)
			if err != nil || cookie.Value == "" {
				return service.ErrInvalidRefreshToken
			}

			claims, err := utils.ParseRefreshToken(secret, cookie.Value)
			if err != nil {
				return service.ErrInvalidRefreshToken
			}
			uid, err := utils.SubjectID(claims.Subject)
			if err != nil {
				return service.ErrInvalidRefreshToken
			}

			c.Set(CtxUserID, uid)
			c.Set(CtxRefreshTokenID, claims.TokenID)
			c.Set(CtxRefreshTokenRaw, cookie.Value)
			return next(c)
		}
	}
}

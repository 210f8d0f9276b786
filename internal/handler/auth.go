package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vowsuite/vowsuite-api/internal/middleware"
	"github.com/vowsuite/vowsuite-api/internal/service"
)

// Sessions is the slice of the session service the auth endpoints consume.
type Sessions interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, userID uint64, tokenID, raw string) (service.Session, error)
	Logout(ctx context.Context, userID uint64, tokenID string) error
	Me(ctx context.Context, userID uint64) (service.MeView, error)
}

// AuthHandler maps the HTTP surface onto the session service: body/cookie
// extraction in, session/error envelopes out.
type AuthHandler struct {
	Svc Sessions
}

func NewAuthHandler(svc Sessions) *AuthHandler { return &AuthHandler{Svc: svc} }

// ----- DTOs -----

type registerReq struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Role         string `json:"role" validate:"required,oneof=ADMIN CLIENT"`
	BusinessName string `json:"businessName"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// sessionResp is the body returned by register/login/refresh. The refresh
// token itself travels only in the HTTP-only cookie.
type sessionResp struct {
	AccessToken string              `json:"accessToken"`
	User        service.UserSummary `json:"user"`
}

// Register creates a user (and business, for ADMIN) and opens a session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.Svc.Register(c.Request().Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		return err
	}

	setRefreshCookie(c, sess.RefreshToken, sess.RefreshExpires)
	return c.JSON(http.StatusCreated, sessionResp{AccessToken: sess.AccessToken, User: sess.User})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	setRefreshCookie(c, sess.RefreshToken, sess.RefreshExpires)
	return c.JSON(http.StatusOK, sessionResp{AccessToken: sess.AccessToken, User: sess.User})
}

// Refresh rotates the refresh token presented in the cookie. RefreshGuard
// has already verified the signature and decoded the claims.
func (h *AuthHandler) Refresh(c echo.Context) error {
	userID := middleware.UserID(c)
	tokenID, _ := c.Get(middleware.CtxRefreshTokenID).(string)
	raw, _ := c.Get(middleware.CtxRefreshTokenRaw).(string)

	sess, err := h.Svc.Refresh(c.Request().Context(), userID, tokenID, raw)
	if err != nil {
		return err
	}

	setRefreshCookie(c, sess.RefreshToken, sess.RefreshExpires)
	return c.JSON(http.StatusOK, sessionResp{AccessToken: sess.AccessToken, User: sess.User})
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := middleware.UserID(c)
	tokenID, _ := c.Get(middleware.CtxRefreshTokenID).(string)

	if err := h.Svc.Logout(c.Request().Context(), userID, tokenID); err != nil {
		return err
	}

	clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	me, err := h.Svc.Me(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}

// setRefreshCookie scopes the refresh token to the auth path family so it
// is never sent to resource endpoints.
func setRefreshCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    token,
		Path:     "/v1/auth",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

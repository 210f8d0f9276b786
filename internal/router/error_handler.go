package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vowsuite/vowsuite-api/internal/service"
)

// errorBody is the canonical error envelope for all API errors.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps session-service errors to deterministic HTTP status codes,
//     surfacing their {code, message} pair verbatim.
//   - Logs unexpected errors internally without leaking details.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorBody) {
	// Echo's own errors: bind failures, 404 from the router, guard
	// rejections. They carry no domain code, so one is synthesized from
	// the status, matching the frontend's error contract.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorBody{
			Code:    fmt.Sprintf("HTTP_%d", he.Code),
			Message: fmt.Sprintf("%v", he.Message),
		}
	}

	var se *service.Error
	if errors.As(err, &se) {
		if status, ok := statusFor(se); ok {
			return status, errorBody{Code: se.Code, Message: se.Message}
		}
	}

	// Unexpected fault: log the real cause, return a generic envelope.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorBody{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}
}

func statusFor(se *service.Error) (int, bool) {
	switch se {
	case service.ErrEmailInUse, service.ErrBusinessRequired:
		return http.StatusBadRequest, true
	case service.ErrInvalidCredentials,
		service.ErrInvalidRefreshToken,
		service.ErrRefreshTokenExpired,
		service.ErrUserNotFound:
		return http.StatusUnauthorized, true
	case service.ErrTokenNotFound:
		return http.StatusForbidden, true
	}
	return 0, false
}

// Package router wires the HTTP surface: routes, guards and rate limits.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/vowsuite/vowsuite-api/internal/config"
	"github.com/vowsuite/vowsuite-api/internal/handler"
	"github.com/vowsuite/vowsuite-api/internal/middleware"
	"github.com/vowsuite/vowsuite-api/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the session lifecycle under /v1/auth.
//
//	POST /v1/auth/register  – open (rate limited)
//	POST /v1/auth/login     – open (rate limited)
//	POST /v1/auth/refresh   – refresh cookie required (rate limited)
//	POST /v1/auth/logout    – refresh cookie required
//	GET  /v1/auth/me        – bearer access token required
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, cfg config.Config, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	limited := middleware.AuthRateLimit(rlCfg, rdb)
	refresh := middleware.RefreshGuard(cfg.RefreshSecret)

	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limited)
	g.POST("/login", a.Login, limited)
	g.POST("/refresh", a.Refresh, limited, refresh)
	g.POST("/logout", a.Logout, refresh)

	// The access-token guard plus the closed role set; resource routes
	// added later hang off the same pair of middlewares.
	g.GET("/me", a.Me,
		middleware.AccessAuth(cfg.AccessSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleClient))
}

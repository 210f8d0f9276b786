package main

import (
	"github.com/labstack/echo/v4"

	"github.com/vowsuite/vowsuite-api/internal/config"
	"github.com/vowsuite/vowsuite-api/internal/database"
	"github.com/vowsuite/vowsuite-api/internal/handler"
	"github.com/vowsuite/vowsuite-api/internal/queue"
	"github.com/vowsuite/vowsuite-api/internal/repository"
	"github.com/vowsuite/vowsuite-api/internal/router"
	"github.com/vowsuite/vowsuite-api/internal/service"
	"github.com/vowsuite/vowsuite-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting disabled")
	}

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		events = service.NewAMQPPublisher(cfg.AMQPURL, log)
		go func() {
			if err := queue.StartAuditConsumer(cfg.AMQPURL, log); err != nil {
				log.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}

	sessions := service.NewSessionService(
		repository.NewUserRepo(db),
		repository.NewBusinessRepo(db),
		repository.NewTokenRepo(db),
		database.NewTxRunner(db),
		events,
		service.Options{
			AccessSecret:   cfg.AccessSecret,
			RefreshSecret:  cfg.RefreshSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			BcryptCost:     cfg.BcryptCost,
		},
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = router.NewHTTPErrorHandler(log)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions), cfg, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

package main

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edugenius/edugenius-api/internal/config"
	"github.com/edugenius/edugenius-api/internal/database"
	"github.com/edugenius/edugenius-api/internal/event"
	"github.com/edugenius/edugenius-api/internal/handler"
	"github.com/edugenius/edugenius-api/internal/mailer"
	"github.com/edugenius/edugenius-api/internal/middleware"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/provider"
	"github.com/edugenius/edugenius-api/internal/repository"
	"github.com/edugenius/edugenius-api/internal/router"
	"github.com/edugenius/edugenius-api/internal/service"
	"github.com/edugenius/edugenius-api/internal/token"
	"github.com/edugenius/edugenius-api/pkg/log"
)

func main() {
	cfg := config.Load()
	logger := log.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("mysql connection failed")
	}
	defer db.Close()

	// The ledger is the revocation authority; without Redis every token
	// check would have to fail closed, so refuse to start instead.
	rdb, err := config.NewRedisClient()
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	users := repository.NewUserRepo(db)
	ledger := repository.NewTokenLedger(rdb)
	codec := token.NewCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)

	providers := provider.NewRegistry()
	providers.Register(model.ProviderLocal, provider.NewLocal(users))
	providers.Register(model.ProviderGoogle, provider.NewGoogle())
	providers.Register(model.ProviderFacebook, provider.NewFacebook())

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})
	events := event.NewPublisher(cfg.AMQPURL, logger)

	refreshTTL := time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour

	authSvc := service.NewAuthService(service.AuthServiceDeps{
		Users:        users,
		Ledger:       ledger,
		Codec:        codec,
		Providers:    providers,
		Mailer:       mail,
		Events:       events,
		Logger:       logger,
		AccessTTL:    time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:   refreshTTL,
		ResetCodeTTL: time.Duration(cfg.ResetCodeTTLMin) * time.Minute,
		BcryptCost:   cfg.BcryptCost,
	})
	userSvc := service.NewUserService(users, cfg.BcryptCost)

	secureCookies := cfg.Env == "prod"
	guard := middleware.NewGuard(codec, ledger, authSvc, secureCookies, refreshTTL)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc, secureCookies, refreshTTL),
		Users:     handler.NewUserHandler(userSvc, authSvc),
		Guard:     guard,
		RateLimit: config.LoadRateLimitConfig(),
		RDB:       rdb,
	})

	if cfg.AMQPURL != "" {
		go event.StartConsumer(cfg.AMQPURL, logger)
	}

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

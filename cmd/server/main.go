package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	_ "patientrecords/docs" // swagger docs

	"patientrecords/internal/auth"
	"patientrecords/internal/cache"
	"patientrecords/internal/config"
	"patientrecords/internal/db"
	"patientrecords/internal/handler"
	"patientrecords/internal/logger"
	"patientrecords/internal/repository"
	"patientrecords/internal/router"
	"patientrecords/internal/service"
)

// @title Patient Records API
// @version 1.0
// @description Patient records API with role based access control and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel)

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.WithError(err).Warn("close database")
		}
	}()

	if cfg.ResetDB {
		log.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.WithError(err).Warn("drop tables")
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	if cacheClient.Enabled() {
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := cacheClient.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("redis unreachable, continuing without cache")
		}
		cancel()
	}
	defer func() { _ = cacheClient.Close() }()

	// Repositories
	patientRepo := repository.NewPatientRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	patientService := service.NewPatientService(patientRepo, cacheClient, cfg.CacheTTL, log)
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, cfg.AllowRoleSignup, log)
	userService := service.NewUserService(userRepo, cacheClient)
	seedService := service.NewSeedService(userRepo, patientService, cfg.SeedPassword, log)

	e := echo.New()
	router.Register(e, cfg, log, jwtService, tokenStore, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, userService),
		Patient: handler.NewPatientHandler(patientService),
		User:    handler.NewUserHandler(userService),
		Seed:    handler.NewSeedHandler(seedService),
	})

	log.WithField("url", swaggerURL(cfg)).Info("swagger documentation available")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		log.WithField("addr", addr).Info("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server start")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

// SwaggerHost may already include a scheme.
func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"restoPlay/app/echo-server/router"
	"restoPlay/business/registration"
	"restoPlay/business/session"
	"restoPlay/business/tenant"
	"restoPlay/internal/middleware"
	"restoPlay/internal/repository/memory"
	"restoPlay/internal/repository/notification"
	psqlRepo "restoPlay/internal/repository/postgres"
	redisRepo "restoPlay/internal/repository/redis"
	"restoPlay/internal/rest"
	"restoPlay/pkg/config"
	"restoPlay/pkg/database"
	redisdb "restoPlay/pkg/database/redis"
	"restoPlay/pkg/keylock"
	"restoPlay/pkg/logger"
	"restoPlay/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
)

// participantStore is what both game services need from the record store.
type participantStore interface {
	registration.ParticipantRepository
	session.ParticipantRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting restoPlay", "version", cfg.App.Version, "tenant_mode", cfg.Game.TenantMode)

	metrics.Init()

	// Init tenant catalog
	var (
		catalog    *tenant.Catalog
		partitions []string
	)
	if cfg.Game.MultiTenant() {
		catalog, err = tenant.LoadFile(cfg.Game.CatalogPath)
		if err != nil {
			logger.Fatal("Failed to load restaurant catalog", "path", cfg.Game.CatalogPath, "error", err)
		}
		partitions = catalog.Partitions()
		logger.Info("Restaurant catalog loaded", "restaurants", len(partitions))
	} else {
		if !tenant.ValidPartition(cfg.Game.DefaultPartition) {
			logger.Fatal("Invalid default table name", "table", cfg.Game.DefaultPartition)
		}
		partitions = []string{cfg.Game.DefaultPartition}
	}

	// Init repo
	var store participantStore
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, records are lost on restart")
		store = memory.NewParticipantRepository(partitions...)
	default:
		db, err := database.InitPostgres(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		logger.Info("Database connected successfully")

		participantRepo := psqlRepo.NewParticipantRepository(db, partitions...)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = participantRepo.EnsurePartitions(ctx)
		cancel()
		if err != nil {
			logger.Fatal("Failed to prepare restaurant tables", "error", err)
		}
		store = participantRepo
	}

	var (
		locker      registration.Locker
		redisClient *goredis.Client
	)
	switch cfg.Game.RegistrationLock {
	case config.LockLocal:
		locker = keylock.New()
	case config.LockRedis:
		redisClient, err = redisdb.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		ttl, wait := redisdb.LockTiming(cfg.Redis)
		logger.Info("Redis registration lock enabled", "ttl", ttl, "wait", wait)
		locker = redisRepo.NewRegistrationLocker(redisClient, ttl, wait)
	}

	// Init notification from mailjet
	var mailer registration.NotificationRepository
	if cfg.Mailjet.Enabled() {
		mailer = notification.NewMailjetRepository(notification.MailjetConfig{
			BaseURL:           cfg.Mailjet.BaseURL,
			BasicAuthUsername: cfg.Mailjet.BasicAuthUsername,
			BasicAuthPassword: cfg.Mailjet.BasicAuthPassword,
			SenderEmail:       cfg.Mailjet.SenderEmail,
			SenderName:        cfg.Mailjet.SenderName,
		})
	}

	// Init service
	registrationService := registration.NewRegistrationService(store, validator.New(), locker, mailer, registration.Config{
		MultiTenant:      cfg.Game.MultiTenant(),
		DefaultPartition: cfg.Game.DefaultPartition,
		GameURL:          cfg.Game.GameURL,
	})
	sessionService := session.NewSessionService(store, session.Config{
		MultiTenant:      cfg.Game.MultiTenant(),
		DefaultPartition: cfg.Game.DefaultPartition,
		History:          cfg.Game.HistoryPolicy,
		LenientTokens:    cfg.Game.LenientTokens,
	})

	// Init handler
	var tenants rest.TenantCatalog
	if catalog != nil {
		tenants = catalog
	}
	gameHandler := rest.NewGameHandler(registrationService, sessionService, tenants, cfg.Server.RequestTimeout)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.Server.AllowOrigins, ","),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echomiddleware.BodyLimit("64K"))

	// Setup routes
	api := e.Group("/api")
	router.SetupGameRoutes(api, gameHandler)
	router.SetupOpsRoutes(e)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if err := redisdb.CloseRedisClient(redisClient); err != nil {
		logger.Error("Redis close error", "error", err)
	}

	logger.Info("Server stopped")
}

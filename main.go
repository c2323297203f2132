// File: faredown/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faredown/config"
	"faredown/cron"
	"faredown/database"
	eventsRepo "faredown/database/repository/events"
	settingsRepo "faredown/database/repository/settings"
	"faredown/handlers"
	"faredown/middleware"
	"faredown/routes"
	"faredown/services/analytics"
	"faredown/services/bargain"
	"faredown/services/pricing"
	"faredown/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitHoldCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	settings := settingsRepo.NewPostgresSettingsRepo(database.DB)
	events := eventsRepo.NewPostgresEventRepo(database.DB)

	// Analytics: ledger always, NATS fan-out when configured.
	var recorder analytics.Recorder = analytics.NewLedgerRecorder(events, logger)
	if config.AppConfig.NATSUrl != "" {
		publisher, err := analytics.NewNATSPublisher(config.AppConfig.NATSUrl, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		recorder = analytics.MultiRecorder{recorder, publisher}
	}

	// Pricing: local engine is the authority unless a remote service is
	// configured, in which case the remote one is used with local fallback.
	localEngine := pricing.NewLocalEngine(settings)
	var pricingSvc pricing.Service = localEngine
	if config.AppConfig.PricingServiceURL != "" {
		pricingSvc = pricing.NewHTTPClient(
			config.AppConfig.PricingServiceURL,
			time.Duration(config.AppConfig.PricingTimeoutSec)*time.Second,
			localEngine,
			logger,
		)
	}

	sessionStore := bargain.NewRedisSessionStore(
		utils.GetSessionCacheClient(),
		time.Duration(config.AppConfig.SessionTTLMin)*time.Minute,
	)
	holdStore := bargain.NewRedisHoldStore(utils.GetHoldCacheClient())

	// Expiry queue: scheduler on the request path, worker in background.
	scheduler := cron.NewScheduler()
	defer scheduler.Close()
	cron.InitExpiryWorker(sessionStore, holdStore, recorder)

	bargainService := &bargain.DefaultBargainService{
		Pricing:   pricingSvc,
		Settings:  settings,
		Sessions:  sessionStore,
		Holds:     holdStore,
		Analytics: recorder,
		Scheduler: scheduler,
		Logger:    logger,
		HoldTTL:   time.Duration(config.AppConfig.HoldDurationMin) * time.Minute,
	}

	bargainHandler := handlers.NewBargainHandler(bargainService, settings, logger)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		StartSession:   bargainHandler.StartSession,
		GetSession:     bargainHandler.GetSession,
		SubmitOffer:    bargainHandler.SubmitOffer,
		AcceptCounter:  bargainHandler.AcceptCounter,
		RejectCounter:  bargainHandler.RejectCounter,
		CreateHold:     bargainHandler.CreateHold,
		AbandonSession: bargainHandler.AbandonSession,
		GetSettings:    bargainHandler.GetSettings,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetSessionCacheClient(), utils.GetHoldCacheClient()},
		database.DB,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

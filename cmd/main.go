package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webhook-digest-service/internal/api"
	"webhook-digest-service/internal/config"
	"webhook-digest-service/internal/db"
	"webhook-digest-service/internal/digest"
	"webhook-digest-service/internal/logging"
	"webhook-digest-service/internal/mailer"
	"webhook-digest-service/internal/utils"
	"webhook-digest-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	var dbConn *db.DB
	if err := utils.Retry(logger, 5, 3*time.Second, func() error {
		var err error
		dbConn, err = db.New(cfg.DB.DSN)
		return err
	}); err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if err := dbConn.Init(context.Background(), cfg.Auth.InitialPassword); err != nil {
		logger.Errorf("Failed to initialize database: %v", err)
		log.Fatalf("Database init failed: %v", err)
	}

	// Wire the digest pipeline
	m := mailer.New(dbConn)
	engine := digest.NewEngine(dbConn, m, logger)
	scheduler := digest.NewScheduler(func() {
		_, err := engine.RunOnce(context.Background())
		switch {
		case errors.Is(err, digest.ErrRunInProgress):
			logger.Warnf("Previous digest run still in progress, skipping fire")
		case err != nil:
			logger.Errorf("Scheduled digest run failed: %v", err)
		}
	}, logger)

	settings, err := dbConn.GetDigestSettings(context.Background())
	if err != nil {
		logger.Errorf("Failed to load digest settings: %v", err)
		log.Fatalf("Digest settings load failed: %v", err)
	}
	scheduler.Start(time.Duration(settings.IntervalMinutes) * time.Minute)

	hub := ws.NewHub(logger)

	// Start API server
	handler := api.NewHandler(dbConn, logger, cfg, engine, scheduler, m, hub)
	router := api.NewRouter(handler)
	go func() {
		logger.Infof("API server started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down...")
	scheduler.Stop()
	logger.Infof("Service stopped")
}

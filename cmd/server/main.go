package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onegreenvn/stockplus-backend/docs"
	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/database"
	"github.com/onegreenvn/stockplus-backend/internal/router"
	"github.com/onegreenvn/stockplus-backend/internal/services"
	"github.com/onegreenvn/stockplus-backend/internal/services/auth"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// @title StockPlus Backend API
// @version 1.0
// @description Retail back-office API: accounts, catalog, barcoded stock, billing and reports

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by your JWT token (e.g. "Bearer <token>")

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	docs.SwaggerInfo.BasePath = cfg.BasePath

	configureLogging(cfg.LogLevel)

	utils.InitSentry(cfg.SentryDSN)
	defer sentry.Flush(2 * time.Second)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	notifier, closeNotifier := setupNotifier(cfg)
	defer closeNotifier()

	otpService := services.NewOTPService(db, notifier)
	otpService.Start()
	defer otpService.Stop()

	// Refresh tokens, plus expired OTP rows when the reaper is on
	var reaper auth.OTPReaper
	if cfg.OTPReaperEnabled {
		reaper = otpService
	}
	tokenCleanupService := auth.NewTokenCleanupService(db, cfg.CleanupInterval, reaper)
	tokenCleanupService.Start()
	defer tokenCleanupService.Stop()

	r := router.SetupRouter(cfg, db, otpService)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", cfg.Port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

// setupNotifier picks how OTP codes leave the process. With a broker, codes are queued
// and a local consumer mails them; without one, they are mailed directly or only logged.
func setupNotifier(cfg *config.Config) (services.Notifier, func()) {
	var sender services.Notifier = services.LogNotifier{}
	if cfg.SMTP.Enabled() {
		sender = services.NewMailService(cfg.SMTP, cfg.ShopName)
	} else {
		logrus.Warn("SMTP_HOST is empty, OTP codes will only be logged")
	}

	if !cfg.RabbitMQ.Enabled() {
		return sender, func() {}
	}

	rabbitMQService, err := services.NewRabbitMQService(cfg.RabbitMQ)
	if err != nil {
		logrus.Warnf("Failed to initialize RabbitMQ, sending OTP codes directly: %v", err)
		return sender, func() {}
	}
	if err := rabbitMQService.StartOTPConsumer(sender); err != nil {
		logrus.Warnf("Failed to start OTP consumer, sending OTP codes directly: %v", err)
		rabbitMQService.Close()
		return sender, func() {}
	}

	return rabbitMQService, func() {
		if err := rabbitMQService.Close(); err != nil {
			logrus.Warnf("Failed to close RabbitMQ: %v", err)
		}
	}
}

func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

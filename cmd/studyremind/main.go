package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/okorolenko/studyremind/internal/api"
	"github.com/okorolenko/studyremind/internal/config"
	"github.com/okorolenko/studyremind/internal/metrics"
	"github.com/okorolenko/studyremind/internal/notify"
	"github.com/okorolenko/studyremind/internal/repository/postgres"
	"github.com/okorolenko/studyremind/internal/service"
	"github.com/okorolenko/studyremind/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting studyremind...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	scheduleRepo := postgres.NewScheduleItemRepository(db.DB)
	reminderRepo := postgres.NewReminderRepository(db.DB)
	logRepo := postgres.NewLogRepository(db.DB)

	// Notification transport
	var transport notify.Transport
	switch cfg.Transport {
	case config.TransportSMTP:
		transport = notify.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	case config.TransportTelegram:
		transport, err = notify.NewTelegramTransport(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram transport: %v", err)
		}
	}

	// Service layer
	m := metrics.New(prometheus.DefaultRegisterer)
	svc := service.New(db.DB, l, m, scheduleRepo, reminderRepo, logRepo, transport, service.Config{
		BaseURL:       cfg.BaseURL,
		ScanInterval:  cfg.ScanInterval,
		ScanTolerance: cfg.ScanTolerance,
		ScanLookahead: cfg.ScanLookahead,
		SnoozeMinutes: cfg.SnoozeMinutes,
	})

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Start the due-reminder scanner
	go svc.StartScanner(ctx)

	// Start HTTP server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("studyremind started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("studyremind stopped")
}

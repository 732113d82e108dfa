package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"isp_billing_echo/internal/config"
	"isp_billing_echo/internal/services"
	"isp_billing_echo/internal/tasks"
)

func main() {
	// Cancel on interrupt from the start so the first pass can be stopped too
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	db, err := services.InitDB(cfg.Database.URL, cfg.Database.Debug)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, billing runs will not be locked: %v", err)
			cache = nil
		}
	}
	defer cache.Close()

	// Initialize Task Registry
	tasks.DefineTasks(tasks.GlobalRegistry)

	deps := tasks.Deps{
		DB:         db,
		Billing:    services.NewBillingService(db, cache, logger).WithDueDays(cfg.Billing.DueDays),
		Email:      services.NewEmailService(cfg.SMTP),
		WhatsApp:   services.NewWahaService(cfg.WhatsApp),
		AlertEmail: cfg.Worker.AlertEmail,
		Log:        logger,
	}
	runner := tasks.NewRunner(db, tasks.GlobalRegistry, deps, logger)

	log.Printf("Worker started with schedule %q", cfg.Worker.Schedule)
	if err := runner.Run(ctx, cfg.Worker.Schedule); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
	log.Println("Worker stopped")
}

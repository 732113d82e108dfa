package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"isp_billing_echo/internal/config"
	"isp_billing_echo/internal/handlers"
	authMiddleware "isp_billing_echo/internal/middleware"
	"isp_billing_echo/internal/services"
	"isp_billing_echo/internal/tasks"
)

func main() {
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

	// Run auto-migration
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; without it the billing run lock and region cache are skipped
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, cache disabled")
	}
	defer cache.Close()

	billing := services.NewBillingService(db, cache, logger).WithDueDays(cfg.Billing.DueDays)
	sessions := services.NewCashSessionService(db, logger)
	invoices := services.NewInvoiceService(db, logger)

	svc := handlers.Services{
		Billing:   billing,
		Invoices:  invoices,
		Payments:  services.NewPaymentService(db, logger),
		Sessions:  sessions,
		Customers: services.NewCustomerService(db, billing, logger),
		Plans:     services.NewPlanService(db, logger),
		Regions:   services.NewRegionService(db, logger),
		Users:     services.NewUserService(db, cache, logger),
		Dashboard: services.NewDashboardService(db, cache, sessions, logger),
	}
	if cfg.ReceiptsEnabled() {
		svc.Receipts = tasks.NewReceiptQueue(db)
	} else {
		log.Println("Warning: WAHA_BASE_URL not set, payment receipts disabled")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "ok"})
	})
	handlers.RegisterRoutes(e, db, svc, cfg.Server.CronSecret)

	if cfg.Server.CronSecret == "" {
		log.Println("Warning: CRON_SECRET not set, /api/billing/run is disabled")
	}

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

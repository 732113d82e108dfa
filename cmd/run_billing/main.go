package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"isp_billing_echo/internal/config"
	"isp_billing_echo/internal/services"
)

func main() {
	period := flag.String("period", "", "Billing period YYYY-MM (default: current month)")
	phase := flag.String("phase", "all", "Which phase to run: cycles, process or all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := services.InitDB(cfg.Database.URL, cfg.Database.Debug)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		if cache, err = services.NewRedisCache(cfg.RedisURL); err != nil {
			log.Printf("Warning: Redis unavailable, running without lock: %v", err)
			cache = nil
		}
	}
	defer cache.Close()

	billing := services.NewBillingService(db, cache, logger).WithDueDays(cfg.Billing.DueDays)
	target := *period
	if target == "" {
		target = billing.CurrentPeriod()
	}

	ctx := context.Background()
	result := services.BillingRunResult{Period: target}
	switch *phase {
	case "cycles":
		result.Created, err = billing.CreateBillingCycles(ctx, target)
	case "process":
		result.InvoicesCreated, err = billing.ProcessBillingCycles(ctx, target)
	case "all":
		var run *services.BillingRunResult
		if run, err = billing.RunBilling(ctx, target); err == nil {
			result = *run
		}
	default:
		fmt.Println("Usage: run_billing [-period YYYY-MM] [-phase cycles|process|all]")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Billing run failed: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

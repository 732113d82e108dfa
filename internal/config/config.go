package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"isp_billing_echo/internal/services"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL not set")

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Billing  BillingConfig
	Worker   WorkerConfig
	SMTP     services.SMTPConfig
	WhatsApp services.WahaConfig
	RedisURL string
}

type ServerConfig struct {
	Port       string
	Env        string
	CronSecret string
}

type DatabaseConfig struct {
	URL   string
	Debug bool
}

type BillingConfig struct {
	DueDays int
}

type WorkerConfig struct {
	Schedule   string
	AlertEmail string
}

// ReceiptsEnabled reports whether customers get WhatsApp payment receipts
func (c *Config) ReceiptsEnabled() bool {
	return c.WhatsApp.BaseURL != ""
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// Load reads .env (when present) and the process environment. Environment
// variables win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("WORKER_SCHEDULE", "@every 5m")
	v.SetDefault("BILLING_DUE_DAYS", services.DefaultInvoiceDueDays)
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("DB_DEBUG", false)
	v.SetDefault("WAHA_SESSION", "default")

	cfg := &Config{
		Server: ServerConfig{
			Port:       v.GetString("PORT"),
			Env:        v.GetString("APP_ENV"),
			CronSecret: v.GetString("CRON_SECRET"),
		},
		Database: DatabaseConfig{
			URL:   v.GetString("DATABASE_URL"),
			Debug: v.GetBool("DB_DEBUG"),
		},
		Billing: BillingConfig{
			DueDays: v.GetInt("BILLING_DUE_DAYS"),
		},
		Worker: WorkerConfig{
			Schedule:   v.GetString("WORKER_SCHEDULE"),
			AlertEmail: v.GetString("ALERT_EMAIL"),
		},
		SMTP: services.SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("EMAIL_FROM"),
		},
		WhatsApp: services.WahaConfig{
			BaseURL: v.GetString("WAHA_BASE_URL"),
			APIKey:  v.GetString("WAHA_API_KEY"),
			Session: v.GetString("WAHA_SESSION"),
		},
		RedisURL: v.GetString("REDIS_URL"),
	}

	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.Billing.DueDays <= 0 {
		cfg.Billing.DueDays = services.DefaultInvoiceDueDays
	}

	if cfg.Database.URL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return cfg, nil
}

// NewLogger builds the structured service logger for the environment
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isp_billing_echo/internal/services"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/isp")
	t.Setenv("PORT", "")
	t.Setenv("BILLING_DUE_DAYS", "")
	t.Setenv("WORKER_SCHEDULE", "")
	t.Setenv("SMTP_USER", "billing@example.com")
	t.Setenv("EMAIL_FROM", "")
	t.Setenv("WAHA_SESSION", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/isp", cfg.Database.URL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "@every 5m", cfg.Worker.Schedule)
	assert.Equal(t, services.DefaultInvoiceDueDays, cfg.Billing.DueDays)
	assert.Equal(t, "billing@example.com", cfg.SMTP.From)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "default", cfg.WhatsApp.Session)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/isp")
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("BILLING_DUE_DAYS", "14")
	t.Setenv("WORKER_SCHEDULE", "*/10 * * * *")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("WAHA_BASE_URL", "http://waha:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.CronSecret)
	assert.Equal(t, 14, cfg.Billing.DueDays)
	assert.Equal(t, "*/10 * * * *", cfg.Worker.Schedule)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.ReceiptsEnabled())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

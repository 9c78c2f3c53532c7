package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultDeliveryTimezone    = "Asia/Kolkata"
	defaultCronNextDayReminder = "0 19 * * *" // 7 PM, after the order cutoff
	defaultCronDispatchSummary = "30 6 * * *" // before the 8 AM delivery start
	defaultMetricsAddr         = ":9090"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken           string
	DatabaseURL             string
	AdminTelegramID         int64
	ManagerTelegramID       int64 // Receives the morning dispatch summary
	LogLevel                string
	Environment             string
	DeliveryTimezone        string
	DeliveryLocation        *time.Location
	CronSpecNextDayReminder string
	CronSpecDispatchSummary string
	MetricsAddr             string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing file is fine.
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.AdminTelegramID, err = requiredInt64(getenv, "ADMIN_TELEGRAM_ID")
	if err != nil {
		return nil, err
	}
	cfg.ManagerTelegramID, err = requiredInt64(getenv, "MANAGER_TELEGRAM_ID")
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.DeliveryTimezone = withDefault(getenv("DELIVERY_TIMEZONE"), defaultDeliveryTimezone)
	cfg.DeliveryLocation, err = time.LoadLocation(cfg.DeliveryTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_TIMEZONE %q: %w", cfg.DeliveryTimezone, err)
	}

	cfg.CronSpecNextDayReminder = withDefault(getenv("CRON_SPEC_NEXT_DAY_REMINDER"), defaultCronNextDayReminder)
	cfg.CronSpecDispatchSummary = withDefault(getenv("CRON_SPEC_DISPATCH_SUMMARY"), defaultCronDispatchSummary)
	for name, spec := range map[string]string{
		"CRON_SPEC_NEXT_DAY_REMINDER": cfg.CronSpecNextDayReminder,
		"CRON_SPEC_DISPATCH_SUMMARY":  cfg.CronSpecDispatchSummary,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	cfg.MetricsAddr = withDefault(getenv("METRICS_ADDR"), defaultMetricsAddr)

	return cfg, nil
}

func requiredInt64(getenv func(string) string, name string) (int64, error) {
	raw := getenv(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is not set", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

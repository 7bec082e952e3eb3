package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Transport selection values
const (
	TransportSMTP     = "smtp"
	TransportTelegram = "telegram"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string
	LogLevel    string
	LogFormat   string
	Port        string

	// BaseURL is the public address embedded in action links.
	BaseURL string

	// Transport selects the notification channel: "smtp" or "telegram".
	Transport     string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string
	TelegramToken string

	ScanInterval  time.Duration
	ScanTolerance time.Duration
	ScanLookahead time.Duration
	SnoozeMinutes int
}

// Load loads configuration from environment variables. Missing transport
// credentials are a fatal configuration error: the scanner refuses to run
// without a usable channel.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
		Port:      getEnvOrDefault("PORT", "8080"),
		BaseURL:   getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		Transport: getEnvOrDefault("NOTIFY_TRANSPORT", TransportSMTP),
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	if cfg.ScanInterval, err = getDurationOrDefault("SCAN_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ScanTolerance, err = getDurationOrDefault("SCAN_TOLERANCE", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.ScanLookahead, err = getDurationOrDefault("SCAN_LOOKAHEAD", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScanLookahead < cfg.ScanInterval {
		return nil, fmt.Errorf("SCAN_LOOKAHEAD (%s) must be at least SCAN_INTERVAL (%s)", cfg.ScanLookahead, cfg.ScanInterval)
	}

	if cfg.SnoozeMinutes, err = getIntOrDefault("SNOOZE_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.SnoozeMinutes <= 0 {
		return nil, fmt.Errorf("SNOOZE_MINUTES must be positive")
	}

	switch cfg.Transport {
	case TransportSMTP:
		if cfg.SMTPHost = os.Getenv("SMTP_HOST"); cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST environment variable is required for the smtp transport")
		}
		if cfg.SMTPFrom = os.Getenv("SMTP_FROM"); cfg.SMTPFrom == "" {
			return nil, fmt.Errorf("SMTP_FROM environment variable is required for the smtp transport")
		}
		if cfg.SMTPPort, err = getIntOrDefault("SMTP_PORT", 587); err != nil {
			return nil, err
		}
		cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	case TransportTelegram:
		if cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN"); cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN environment variable is required for the telegram transport")
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q (supported: %s, %s)", cfg.Transport, TransportSMTP, TransportTelegram)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like \"90s\": %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

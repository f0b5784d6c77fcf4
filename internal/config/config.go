package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken string
	OwnerChatID   int64
	DatabaseURL   string
	OutboxPath    string
	Location      *time.Location
	Latitude      float64
	Longitude     float64
	ReconcileAt   string
	// ReportAt is the HH:MM time of the daily summary; empty disables it.
	ReportAt string

	SyncInterval     time.Duration
	RetryDelay       time.Duration
	MaxRetryAttempts int
	ShutdownTimeout  time.Duration

	LogLevel    string
	LogEncoding string
}

// Load reads configuration from environment variables (optionally .env) with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		TelegramToken:    strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:      getString("DATABASE_URL", "data/daybook.db"),
		OutboxPath:       getString("OUTBOX_PATH", "data/outbox.db"),
		Latitude:         getFloat("LATITUDE", 39.006),
		Longitude:        getFloat("LONGITUDE", -77.428),
		ReconcileAt:      getString("RECONCILE_AT", "00:01"),
		ReportAt:         strings.TrimSpace(os.Getenv("REPORT_AT")),
		SyncInterval:     getDuration("SYNC_INTERVAL", 30*time.Second),
		RetryDelay:       getDuration("RETRY_DELAY", 200*time.Millisecond),
		MaxRetryAttempts: getInt("MAX_RETRY_ATTEMPTS", 5),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:         getString("LOG_LEVEL", "info"),
		LogEncoding:      getString("LOG_ENCODING", "console"),
	}

	if raw := strings.TrimSpace(os.Getenv("OWNER_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("OWNER_CHAT_ID must be a number: %w", err)
		}
		cfg.OwnerChatID = id
	}

	loc := time.Local
	if name := strings.TrimSpace(os.Getenv("TIMEZONE")); name != "" {
		parsed, err := time.LoadLocation(name)
		if err != nil {
			return cfg, fmt.Errorf("load TIMEZONE %q: %w", name, err)
		}
		loc = parsed
	}
	cfg.Location = loc

	if cfg.Latitude < -90 || cfg.Latitude > 90 {
		return cfg, fmt.Errorf("LATITUDE out of range: %v", cfg.Latitude)
	}
	if cfg.Longitude < -180 || cfg.Longitude > 180 {
		return cfg, fmt.Errorf("LONGITUDE out of range: %v", cfg.Longitude)
	}
	if cfg.SyncInterval < time.Second {
		cfg.SyncInterval = time.Second
	}

	return cfg, nil
}

// BotEnabled reports whether the chat binding should be started.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration accepts Go durations ("45s") and bare seconds ("45").
func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

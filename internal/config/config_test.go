package config

import (
	"os"
	"testing"
	"time"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "OWNER_CHAT_ID", "DATABASE_URL", "OUTBOX_PATH", "TIMEZONE",
		"LATITUDE", "LONGITUDE", "SYNC_INTERVAL", "RETRY_DELAY", "MAX_RETRY_ATTEMPTS",
		"RECONCILE_AT", "REPORT_AT", "LOG_LEVEL", "LOG_ENCODING", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "data/daybook.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Latitude != 39.006 || cfg.Longitude != -77.428 {
		t.Errorf("coordinates = %v,%v", cfg.Latitude, cfg.Longitude)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if cfg.BotEnabled() {
		t.Error("bot should be disabled without a token")
	}
	if cfg.ReportAt != "" {
		t.Errorf("ReportAt = %q, want disabled", cfg.ReportAt)
	}
	if cfg.Location != time.Local {
		t.Errorf("Location = %v, want Local", cfg.Location)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "abc")
	t.Setenv("OWNER_CHAT_ID", "42")
	t.Setenv("SYNC_INTERVAL", "90")
	t.Setenv("RETRY_DELAY", "1s")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REPORT_AT", " 21:30 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.BotEnabled() || cfg.OwnerChatID != 42 {
		t.Errorf("bot settings = %q/%d", cfg.TelegramToken, cfg.OwnerChatID)
	}
	if cfg.SyncInterval != 90*time.Second {
		t.Errorf("SyncInterval = %v, want 90s", cfg.SyncInterval)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v", cfg.RetryDelay)
	}
	if cfg.ReportAt != "21:30" {
		t.Errorf("ReportAt = %q", cfg.ReportAt)
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("Location = %v", cfg.Location)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Given a non-numeric owner When loading Then fails", key: "OWNER_CHAT_ID", val: "me"},
		{name: "Given an unknown zone When loading Then fails", key: "TIMEZONE", val: "Mars/Olympus"},
		{name: "Given a latitude past the pole When loading Then fails", key: "LATITUDE", val: "91"},
		{name: "Given a longitude past the antimeridian When loading Then fails", key: "LONGITUDE", val: "-200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearAppEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		if strings.HasPrefix(key, "APP_") {
			t.Setenv(key, "")
		}
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("APP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := FromEnv()

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.Source != "sheet" {
		t.Fatalf("expected default source sheet, got %q", cfg.Source)
	}
	if cfg.SheetCSVURL != DefaultSheetCSVURL {
		t.Fatalf("unexpected default sheet URL %q", cfg.SheetCSVURL)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("expected 30s refresh interval, got %v", cfg.RefreshInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("expected max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.FetchTimeout != 0 {
		t.Fatalf("expected no fetch timeout by default, got %v", cfg.FetchTimeout)
	}
	if cfg.TableLimit != 20 {
		t.Fatalf("expected table limit 20, got %d", cfg.TableLimit)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("APP_SOURCE", "SAMPLE")
	t.Setenv("APP_REFRESH_INTERVAL_MS", "1500")
	t.Setenv("APP_MAX_RETRIES", "not-a-number")
	t.Setenv("APP_TELEGRAM_CHAT_ID", "-100123")

	cfg := FromEnv()

	if cfg.Source != "sample" {
		t.Fatalf("expected lower-cased source, got %q", cfg.Source)
	}
	if cfg.RefreshInterval != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s interval, got %v", cfg.RefreshInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("expected invalid int to fall back to default, got %d", cfg.MaxRetries)
	}
	if cfg.TelegramChatID != -100123 {
		t.Fatalf("unexpected chat id %d", cfg.TelegramChatID)
	}
}

func TestApplyEnvDefaultsFromFile(t *testing.T) {
	clearAppEnv(t)
	path := filepath.Join(t.TempDir(), "dash.env")
	content := "# comment\nAPP_SHEET_CSV_URL=\"https://example.test/sheet.csv\"\nAPP_LOG_LEVEL='debug'\nbroken line\nAPP_SOURCE=sql\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("APP_SOURCE", "sample")
	// Registered before the file is applied so cleanup restores the originals.
	t.Setenv("APP_SHEET_CSV_URL", "")
	t.Setenv("APP_LOG_LEVEL", "")

	if err := applyEnvDefaultsFromFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("APP_SHEET_CSV_URL"); got != "https://example.test/sheet.csv" {
		t.Fatalf("expected quoted value unwrapped, got %q", got)
	}
	if got := os.Getenv("APP_LOG_LEVEL"); got != "debug" {
		t.Fatalf("expected single-quoted value unwrapped, got %q", got)
	}
	if got := os.Getenv("APP_SOURCE"); got != "sample" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 3307, DBName: "d", DBConnTimeout: 5 * time.Second, DBQueryTimeout: 10 * time.Second}
	dsn := cfg.MySQLDSN()
	if !strings.HasPrefix(dsn, "u:p@tcp(h:3307)/d?") || !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// restoreDefaultLogger はテスト終了時にグローバルロガーを元に戻す。
func restoreDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func clearAppEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"UPSTREAM_URL", "UPSTREAM_ALLOW_PRIVATE", "SERVER_PORT", "BASE_URL",
		"FETCH_TIMEOUT", "FETCH_MAX_SIZE", "RATE_LIMIT_GENERAL", "RATE_LIMIT_PAGE",
		"SESSION_MAX_AGE", "SESSION_IDLE_TTL", "COOKIE_DOMAIN",
		"CORS_ALLOWED_ORIGIN", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestInit_WithDefaultConfig_Succeeds(t *testing.T) {
	restoreDefaultLogger(t)
	clearAppEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.UpstreamURL != "https://sandbox.cruisebound-qa.com/sailings" {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}

	// Verify that slog global logger is configured for JSON output
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_AppliesLogLevel(t *testing.T) {
	restoreDefaultLogger(t)
	clearAppEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("INFO log should be suppressed at WARN level, got %s", buf.String())
	}

	slog.Warn("should appear")
	if !bytes.Contains(buf.Bytes(), []byte("should appear")) {
		t.Errorf("WARN log should be written, got %s", buf.String())
	}
}

func TestInit_WithInvalidUpstreamURL_ReturnsError(t *testing.T) {
	restoreDefaultLogger(t)
	clearAppEnv(t)
	t.Setenv("UPSTREAM_URL", "ftp://example.com/sailings")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for invalid UPSTREAM_URL, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %s", cfg.HTTPAddr)
	}
	if cfg.ProfileBackend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %s", cfg.ProfileBackend)
	}
	if cfg.ToastDuration != 15*time.Second {
		t.Fatalf("expected 15s toast duration, got %s", cfg.ToastDuration)
	}
	if cfg.PagesExt != ".page.html" {
		t.Fatalf("unexpected pages ext %q", cfg.PagesExt)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level %s", cfg.LogLevel)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "18080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROFILE_BACKEND", "Firestore")
	t.Setenv("FIRESTORE_PROJECT_ID", "academy")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("TOAST_DURATION_SECONDS", "3")
	t.Setenv("SECURE_COOKIES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":18080" {
		t.Fatalf("expected PORT override, got %s", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.ProfileBackend != BackendFirestore || cfg.FirestoreProjectID != "academy" {
		t.Fatalf("expected firestore backend, got %s/%s", cfg.ProfileBackend, cfg.FirestoreProjectID)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("expected TOKEN_TTL 2h, got %s", cfg.TokenTTL)
	}
	if cfg.ToastDuration != 3*time.Second {
		t.Fatalf("expected TOAST_DURATION 3s, got %s", cfg.ToastDuration)
	}
	if !cfg.SecureCookies {
		t.Fatalf("expected secure cookies")
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("PROFILE_BACKEND", "mongo")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}

	t.Setenv("PROFILE_BACKEND", "firestore")
	t.Setenv("FIRESTORE_PROJECT_ID", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for firestore without project")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("TOKEN_ISSUER=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	// Registered so the variable godotenv sets is cleaned up after the test.
	t.Setenv("TOKEN_ISSUER", "")
	os.Unsetenv("TOKEN_ISSUER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenIssuer != "from-file" {
		t.Fatalf("expected issuer from env file, got %q", cfg.TokenIssuer)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("discord_token: file-token\nlog_channel_id: \"111\"\ncaptcha:\n  default_timeout_minutes: 5\npurge:\n  concurrency: 7\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("LOG_CHANNEL_ID", "222")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEFAULT_LANGUAGE", "EN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "file-token" {
		t.Fatalf("expected token from file, got %q", cfg.DiscordToken)
	}
	if cfg.LogChannelID != "222" {
		t.Fatalf("expected env override, got %q", cfg.LogChannelID)
	}
	if cfg.Captcha.DefaultTimeoutMinutes != 5 {
		t.Fatalf("expected timeout 5, got %d", cfg.Captcha.DefaultTimeoutMinutes)
	}
	if cfg.Purge.Concurrency != 7 {
		t.Fatalf("expected concurrency 7, got %d", cfg.Purge.Concurrency)
	}
	if cfg.Captcha.GraceMinutes != 10 {
		t.Fatalf("expected default grace 10, got %d", cfg.Captcha.GraceMinutes)
	}
	if len(cfg.Dashboard.AllowedOrigins) != 2 || cfg.Dashboard.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Dashboard.AllowedOrigins)
	}
	if cfg.DefaultLanguage != "en" {
		t.Fatalf("expected en, got %q", cfg.DefaultLanguage)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiscordToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.API.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for api without secret")
	}
	cfg.API.SecretToken = "secret"

	cfg.Dashboard.Enabled = true
	cfg.Dashboard.JWTSecret = "jwt"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for dashboard without oauth client")
	}
	cfg.Dashboard.ClientID = "id"
	cfg.Dashboard.ClientSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warn") != zapcore.WarnLevel {
		t.Fatalf("expected warn level")
	}
	if parseLevel("verbose") != zapcore.InfoLevel {
		t.Fatalf("expected info fallback")
	}
}

func TestReadSkipsValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DATABASE_URL", "sqlite:///tmp/rudy.db")

	cfg, err := Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.DatabaseURL != "sqlite:///tmp/rudy.db" {
		t.Fatalf("expected env database url, got %q", cfg.DatabaseURL)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "POSTGRES_URL", "JWT_SECRET", "TOKEN_TTL", "KAFKA_BROKERS", "CORS_ALLOW_ORIGINS", "TRACING_ENABLED"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())

	cfg := Load()

	if cfg.Port != "5000" {
		t.Errorf("expected port 5000, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 168*time.Hour {
		t.Errorf("expected 7 day token ttl, got %s", cfg.TokenTTL)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.OrderCreatedTopic != "order.created" {
		t.Errorf("unexpected topic %s", cfg.OrderCreatedTopic)
	}
	if len(cfg.CORSAllowOrigins) != 1 || cfg.CORSAllowOrigins[0] != "*" {
		t.Errorf("expected wildcard origin, got %v", cfg.CORSAllowOrigins)
	}
	if cfg.TracingEnabled {
		t.Error("expected tracing disabled by default")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://patas.example,https://admin.patas.example")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if strings.Join(cfg.KafkaBrokers, "|") != "kafka-1:9092|kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h, got %s", cfg.TokenTTL)
	}
	if !cfg.TracingEnabled {
		t.Error("expected tracing enabled")
	}
	if len(cfg.CORSAllowOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORSAllowOrigins)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOKEN_TTL", "a week")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg := Load()

	if cfg.TokenTTL != 168*time.Hour {
		t.Errorf("expected default ttl, got %s", cfg.TokenTTL)
	}
	if cfg.TracingEnabled {
		t.Error("expected tracing disabled")
	}
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := "JWT_SECRET=from-file\nPOSTGRES_URL=postgres://file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("POSTGRES_URL", "postgres://env")
	// t.Setenv restores the variable afterwards; clear it so the file value applies.
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg := Load()

	if cfg.JWTSecret != "from-file" {
		t.Errorf("expected secret from .env, got %q", cfg.JWTSecret)
	}
	if cfg.PostgresURL != "postgres://env" {
		t.Errorf("expected environment to win, got %q", cfg.PostgresURL)
	}
}

func TestConfig_ValidateStorefront(t *testing.T) {
	valid := Config{PostgresURL: "postgres://x", JWTSecret: "s", TokenTTL: time.Hour}
	if err := valid.ValidateStorefront(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	err := Config{TokenTTL: -time.Minute}.ValidateStorefront()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"POSTGRES_URL", "JWT_SECRET", "TOKEN_TTL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in %q", want, err)
		}
	}
}

func TestConfig_ValidateNotifier(t *testing.T) {
	if err := (Config{MailerURL: "http://mailer"}).ValidateNotifier(); err == nil {
		t.Error("expected missing brokers to fail")
	}
	if err := (Config{KafkaBrokers: []string{"k:9092"}, MailerURL: "http://mailer"}).ValidateNotifier(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

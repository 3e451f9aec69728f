package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(body), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Claim.MaxFailedAttempts != 5 {
		t.Fatalf("MaxFailedAttempts = %d, want 5", cfg.Claim.MaxFailedAttempts)
	}
	if cfg.Claim.LockDuration != 15*time.Minute {
		t.Fatalf("LockDuration = %s, want 15m", cfg.Claim.LockDuration)
	}
	if cfg.Claim.TokenLength != 9 {
		t.Fatalf("TokenLength = %d, want 9", cfg.Claim.TokenLength)
	}
	if cfg.Production.MaxCardsPerOrder != 10 {
		t.Fatalf("MaxCardsPerOrder = %d, want 10", cfg.Production.MaxCardsPerOrder)
	}
	if cfg.Production.TokenRetryLimit != 8 {
		t.Fatalf("TokenRetryLimit = %d, want 8", cfg.Production.TokenRetryLimit)
	}
	if cfg.IsProduction() {
		t.Fatalf("default env should not be production")
	}
}

func TestLoadParsesYAMLDurations(t *testing.T) {
	path := writeConfig(t, `
app:
  base_url: https://cards.example.com/
claim:
  max_failed_attempts: 3
  lock_duration: 2m
  token_length: 10
production:
  email_to: [ops@example.com]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Claim.MaxFailedAttempts != 3 || cfg.Claim.LockDuration != 2*time.Minute || cfg.Claim.TokenLength != 10 {
		t.Fatalf("claim config = %+v", cfg.Claim)
	}
	if cfg.App.BaseURL != "https://cards.example.com" {
		t.Fatalf("BaseURL = %q, want trailing slash trimmed", cfg.App.BaseURL)
	}
	if len(cfg.Production.EmailTo) != 1 || cfg.Production.EmailTo[0] != "ops@example.com" {
		t.Fatalf("EmailTo = %v", cfg.Production.EmailTo)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost/cards")
	t.Setenv("PRODUCTION_EMAIL_TO", "a@example.com, b@example.com ,")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DSN != "postgres://u:p@localhost/cards" {
		t.Fatalf("DSN = %q", cfg.Database.DSN)
	}
	if strings.Join(cfg.Production.EmailTo, ";") != "a@example.com;b@example.com" {
		t.Fatalf("EmailTo = %v", cfg.Production.EmailTo)
	}
}

func TestValidateRejectsExposedSecretsInProduction(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
jwt:
  secret: x
production:
  expose_secrets: true
  resend_api_key: re_test
  email_to: [ops@example.com]
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "expose_secrets") {
		t.Fatalf("Load err = %v, want expose_secrets rejection", err)
	}
}

func TestClaimConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultClaimConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default claim config invalid: %v", err)
	}
	cfg.TokenLength = 11
	if err := cfg.Validate(); err == nil {
		t.Fatalf("token length 11 accepted")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("SOUNDCARD_CONFIG", "")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("ResolveConfigPath(\"\") = %q, want %q", got, DefaultConfigPath)
	}
	t.Setenv("SOUNDCARD_CONFIG", "/etc/soundcard/config.yaml")
	if got := ResolveConfigPath(""); got != "/etc/soundcard/config.yaml" {
		t.Fatalf("ResolveConfigPath env = %q", got)
	}
	if got := ResolveConfigPath("./local.yaml"); got != "local.yaml" {
		t.Fatalf("ResolveConfigPath flag = %q", got)
	}
}

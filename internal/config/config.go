// Package config loads the service configuration from a YAML file with
// environment overrides for secrets and deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	// EnvProduction disables development affordances.
	EnvProduction = "production"
	// EnvDevelopment is the default environment.
	EnvDevelopment = "development"
)

// DefaultConfigPath is used when neither a flag nor SOUNDCARD_CONFIG is set.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level options supplied on the command line.
type AppConfig struct {
	ConfigPath string
}

// Config is the full service configuration.
type Config struct {
	App        AppSection       `yaml:"app"`
	Database   DatabaseSection  `yaml:"database"`
	Claim      ClaimConfig      `yaml:"claim"`
	Production ProductionConfig `yaml:"production"`
	Storage    StorageSection   `yaml:"storage"`
	JWT        JWTConfig        `yaml:"jwt"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AppSection configures the HTTP surface.
type AppSection struct {
	Env     string `yaml:"env"`
	Listen  string `yaml:"listen"`
	BaseURL string `yaml:"base_url"` // Public site URL encoded into card QR codes.
}

// DatabaseSection configures the record store.
type DatabaseSection struct {
	DSN string `yaml:"dsn"` // postgres:// URL or a sqlite file path.
}

// ClaimConfig tunes the claim state machine.
type ClaimConfig struct {
	MaxFailedAttempts int           `yaml:"max_failed_attempts"` // Failures before lockout.
	LockDuration      time.Duration `yaml:"lock_duration"`       // Lockout length.
	TokenLength       int           `yaml:"token_length"`        // Length of minted tokens, 8..10.
}

// ProductionConfig tunes the order pipeline.
type ProductionConfig struct {
	MaxCardsPerOrder int           `yaml:"max_cards_per_order"`
	TokenRetryLimit  int           `yaml:"token_retry_limit"` // Inserts tried per card on token collision.
	ExposeSecrets    bool          `yaml:"expose_secrets"`    // Return tokens and codes to the caller; development only.
	PackLinkTTL      time.Duration `yaml:"pack_link_ttl"`
	EmailTo          []string      `yaml:"email_to"`
	EmailFrom        string        `yaml:"email_from"`
	ResendAPIKey     string        `yaml:"resend_api_key"`
	WavesDir         string        `yaml:"waves_dir"` // Overrides the embedded waveform templates.
}

// StorageSection configures pack storage.
type StorageSection struct {
	Dir string `yaml:"dir"`
}

// JWTConfig configures admin sessions and signed pack links.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RedisConfig configures the optional request rate limiter.
type RedisConfig struct {
	Addr       string        `yaml:"addr"` // Empty disables rate limiting.
	DB         int           `yaml:"db"`
	RateLimit  int           `yaml:"rate_limit"` // Requests per window per client IP.
	RateWindow time.Duration `yaml:"rate_window"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json.
	File       string `yaml:"file"`   // Empty logs to stdout.
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Env), EnvProduction)
}

// ResolveConfigPath picks the config path from the flag value, SOUNDCARD_CONFIG, or the default.
func ResolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return filepath.Clean(p)
	}
	if p := strings.TrimSpace(os.Getenv("SOUNDCARD_CONFIG")); p != "" {
		return filepath.Clean(p)
	}
	return DefaultConfigPath
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads path (a missing file yields defaults), applies env overrides, and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	if errEnv := applyEnv(&cfg); errEnv != nil {
		return Config{}, errEnv
	}
	normalize(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// LoadDatabaseDSN returns only the database DSN from the config at path.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("APP_ENV", &cfg.App.Env)
	setString("LISTEN_ADDR", &cfg.App.Listen)
	setString("BASE_URL", &cfg.App.BaseURL)
	setString("DATABASE_DSN", &cfg.Database.DSN)
	setString("JWT_SECRET", &cfg.JWT.Secret)
	setString("RESEND_API_KEY", &cfg.Production.ResendAPIKey)
	setString("PRODUCTION_EMAIL_FROM", &cfg.Production.EmailFrom)
	setString("STORAGE_DIR", &cfg.Storage.Dir)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	if v := strings.TrimSpace(os.Getenv("PRODUCTION_EMAIL_TO")); v != "" {
		cfg.Production.EmailTo = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	return nil
}

// splitCSV parses a comma separated list, dropping blanks.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

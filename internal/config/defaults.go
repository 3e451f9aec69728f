package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/exact3design/soundcard/internal/util"
)

// Defaults for the claim flow and the order pipeline.
const (
	DefaultMaxFailedAttempts = 5
	DefaultLockDuration      = 15 * time.Minute
	DefaultTokenLength       = 9
	DefaultMaxCardsPerOrder  = 10
	DefaultTokenRetryLimit   = 8
	DefaultPackLinkTTL       = 30 * 24 * time.Hour
	DefaultJWTExpiry         = 24 * time.Hour
	DefaultRateLimit         = 30
	DefaultRateWindow        = time.Minute
	DefaultListen            = ":8080"
	DefaultBaseURL           = "https://exact3design.com"
	DefaultEmailFrom         = "Exact3 Design <onboarding@resend.dev>"
)

// Default returns a config populated with defaults.
func Default() Config {
	return Config{
		App: AppSection{
			Env:     EnvDevelopment,
			Listen:  DefaultListen,
			BaseURL: DefaultBaseURL,
		},
		Database: DatabaseSection{
			DSN: defaultDataPath("soundcard.db"),
		},
		Claim: DefaultClaimConfig(),
		Production: ProductionConfig{
			MaxCardsPerOrder: DefaultMaxCardsPerOrder,
			TokenRetryLimit:  DefaultTokenRetryLimit,
			PackLinkTTL:      DefaultPackLinkTTL,
			EmailFrom:        DefaultEmailFrom,
		},
		Storage: StorageSection{
			Dir: defaultDataPath("packs"),
		},
		JWT: JWTConfig{
			Expiry: DefaultJWTExpiry,
		},
		Redis: RedisConfig{
			RateLimit:  DefaultRateLimit,
			RateWindow: DefaultRateWindow,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// DefaultClaimConfig returns the claim defaults: 5 attempts, 15 minute lock, 9 symbol tokens.
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		LockDuration:      DefaultLockDuration,
		TokenLength:       DefaultTokenLength,
	}
}

// normalize fills zero values left by a partial config file.
func normalize(cfg *Config) {
	def := Default()
	cfg.App.Env = strings.ToLower(strings.TrimSpace(cfg.App.Env))
	if cfg.App.Env == "" {
		cfg.App.Env = def.App.Env
	}
	if strings.TrimSpace(cfg.App.Listen) == "" {
		cfg.App.Listen = def.App.Listen
	}
	cfg.App.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.App.BaseURL), "/")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = def.App.BaseURL
	}
	if cfg.Claim.MaxFailedAttempts == 0 {
		cfg.Claim.MaxFailedAttempts = def.Claim.MaxFailedAttempts
	}
	if cfg.Claim.LockDuration == 0 {
		cfg.Claim.LockDuration = def.Claim.LockDuration
	}
	if cfg.Claim.TokenLength == 0 {
		cfg.Claim.TokenLength = def.Claim.TokenLength
	}
	if cfg.Production.MaxCardsPerOrder == 0 {
		cfg.Production.MaxCardsPerOrder = def.Production.MaxCardsPerOrder
	}
	if cfg.Production.TokenRetryLimit == 0 {
		cfg.Production.TokenRetryLimit = def.Production.TokenRetryLimit
	}
	if cfg.Production.PackLinkTTL == 0 {
		cfg.Production.PackLinkTTL = def.Production.PackLinkTTL
	}
	if strings.TrimSpace(cfg.Production.EmailFrom) == "" {
		cfg.Production.EmailFrom = def.Production.EmailFrom
	}
	if strings.TrimSpace(cfg.Storage.Dir) == "" {
		cfg.Storage.Dir = def.Storage.Dir
	}
	if cfg.JWT.Expiry == 0 {
		cfg.JWT.Expiry = def.JWT.Expiry
	}
	if cfg.Redis.RateLimit == 0 {
		cfg.Redis.RateLimit = def.Redis.RateLimit
	}
	if cfg.Redis.RateWindow == 0 {
		cfg.Redis.RateWindow = def.Redis.RateWindow
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// defaultDataPath places name under WRITABLE_PATH when it is set.
func defaultDataPath(name string) string {
	if base := util.WritablePath(); base != "" {
		return filepath.Join(base, name)
	}
	return filepath.Join("data", name)
}

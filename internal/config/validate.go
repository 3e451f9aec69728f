package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.App.Env {
	case EnvProduction, EnvDevelopment, "test":
	default:
		return fmt.Errorf("config: app.env must be production, development or test, got %q", c.App.Env)
	}
	if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: app.base_url must be an absolute URL, got %q", c.App.BaseURL)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if errClaim := c.Claim.Validate(); errClaim != nil {
		return errClaim
	}
	if c.Production.MaxCardsPerOrder < 1 {
		return errors.New("config: production.max_cards_per_order must be >= 1")
	}
	if c.Production.TokenRetryLimit < 1 {
		return errors.New("config: production.token_retry_limit must be >= 1")
	}
	if c.Production.PackLinkTTL <= 0 {
		return errors.New("config: production.pack_link_ttl must be positive")
	}
	if c.IsProduction() {
		if c.Production.ExposeSecrets {
			return errors.New("config: production.expose_secrets cannot be enabled in production")
		}
		if strings.TrimSpace(c.JWT.Secret) == "" {
			return errors.New("config: jwt.secret is required in production")
		}
		if strings.TrimSpace(c.Production.ResendAPIKey) == "" {
			return errors.New("config: production.resend_api_key is required in production")
		}
		if len(c.Production.EmailTo) == 0 {
			return errors.New("config: production.email_to is required in production")
		}
	}
	if c.JWT.Expiry <= 0 {
		return errors.New("config: jwt.expiry must be positive")
	}
	if c.Redis.RateLimit < 1 {
		return errors.New("config: redis.rate_limit must be >= 1")
	}
	if c.Redis.RateWindow < time.Second {
		return errors.New("config: redis.rate_window must be at least 1s")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Validate checks the claim tuning.
func (c ClaimConfig) Validate() error {
	if c.MaxFailedAttempts < 1 {
		return errors.New("config: claim.max_failed_attempts must be >= 1")
	}
	if c.LockDuration <= 0 {
		return errors.New("config: claim.lock_duration must be positive")
	}
	if c.TokenLength < 8 || c.TokenLength > 10 {
		return fmt.Errorf("config: claim.token_length must be between 8 and 10, got %d", c.TokenLength)
	}
	return nil
}

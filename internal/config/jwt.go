package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// JWTConfig holds the signing settings for session and magic-link tokens.
type JWTConfig struct {
	Secret           string
	Issuer           string
	ExpirationHours  int
	MagicLinkMinutes int
}

// NewJWTConfig reads JWT_SECRET (required), JWT_ISSUER (default: interview-manager),
// JWT_EXPIRATION_HOURS (default: 24) and MAGIC_LINK_TTL_MINUTES (default: 15).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	expirationHours, err := intFromEnv("JWT_EXPIRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}
	magicMinutes, err := intFromEnv("MAGIC_LINK_TTL_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "interview-manager"
	}

	config := &JWTConfig{
		Secret:           secret,
		Issuer:           issuer,
		ExpirationHours:  expirationHours,
		MagicLinkMinutes: magicMinutes,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// SessionTTL is the lifetime of a login token
func (c *JWTConfig) SessionTTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// MagicLinkTTL is the lifetime of a one-time sign-in link
func (c *JWTConfig) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkMinutes) * time.Minute
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.MagicLinkMinutes < 1 || c.MagicLinkMinutes > 24*60 {
		return fmt.Errorf("MAGIC_LINK_TTL_MINUTES must be between 1 and 1440, got: %d", c.MagicLinkMinutes)
	}
	return nil
}

func intFromEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return n, nil
}

package config

import (
	"fmt"
	"time"
)

// JWTConfig holds configuration for interviewer dashboard tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig validates and returns a token configuration.
func NewJWTConfig(secret string, expirationHours int) (*JWTConfig, error) {
	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// Expiration returns the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("auth.jwt_secret cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters, got: %d", len(c.Secret))
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("auth.jwt_expiration_hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

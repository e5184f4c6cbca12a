// Package jwtmw issues and verifies the HS256 tokens used by the HTTP API.
package jwtmw

import "time"

// EnvKeyJWTSecret is the environment variable holding the signing secret.
const EnvKeyJWTSecret = "JWT_SECRET"

// Config holds the signing secret and token lifetimes.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultConfig returns the default lifetimes; Secret has no default.
func DefaultConfig() Config {
	return Config{
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

package session

import (
	"os"
	"time"
)

// Config holds token settings.
type Config struct {
	Issuer string
	TTL    time.Duration
}

// ConfigFromEnv reads SESSION_ISSUER and SESSION_TTL.
func ConfigFromEnv() Config {
	issuer := os.Getenv("SESSION_ISSUER")
	if issuer == "" {
		issuer = "meeting-api"
	}
	ttl := 12 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	return Config{Issuer: issuer, TTL: ttl}
}
